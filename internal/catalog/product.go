package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/bazaar/internal/model"
	"github.com/hitoshi/bazaar/internal/repository"
	"github.com/hitoshi/bazaar/internal/security"
)

// VariantInput は商品バリアントのUPSERT入力。
type VariantInput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SKU        string `json:"sku"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

// ProductInput は商品のUPSERT入力。IDが空の場合は新規作成する。
// Slugが空の場合は商品名から一意なスラグを生成する。
type ProductInput struct {
	ID            string         `json:"id"`
	StoreID       string         `json:"store_id"`
	CategoryID    string         `json:"category_id"`
	SubCategoryID string         `json:"subcategory_id"`
	Name          string         `json:"name"`
	Slug          string         `json:"slug"`
	Description   string         `json:"description"`
	Brand         string         `json:"brand"`
	Variants      []VariantInput `json:"variants"`
}

// ProductService は商品のビジネスロジックを提供する。
// 変更系は商品が属するストアの所有者またはADMINに限定される。
type ProductService struct {
	repo      repository.ProductRepository
	stores    repository.StoreRepository
	users     repository.UserRepository
	sanitizer security.ContentSanitizerService
	logger    *slog.Logger
}

// NewProductService はProductServiceを生成する。
func NewProductService(
	repo repository.ProductRepository,
	stores repository.StoreRepository,
	users repository.UserRepository,
	sanitizer security.ContentSanitizerService,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		repo:      repo,
		stores:    stores,
		users:     users,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// Get は指定IDの商品をバリアント付きで取得する。
func (s *ProductService) Get(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	if p == nil {
		return nil, model.NewEntityNotFoundError("商品", id)
	}
	return p, nil
}

// GetBySlug はスラグで商品をバリアント付きで取得する。
func (s *ProductService) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	p, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to find product by slug: %w", err)
	}
	if p == nil {
		return nil, model.NewEntityNotFoundError("商品", slug)
	}
	return p, nil
}

// ListByStore は指定ストアの商品一覧を取得する。
func (s *ProductService) ListByStore(ctx context.Context, storeID string) ([]*model.Product, error) {
	return s.repo.ListByStore(ctx, storeID)
}

// Upsert は商品とバリアントを作成または更新する。
// スラグ未指定の場合は商品名から一意なスラグを採番し、
// 指定された場合は衝突をslugの一意衝突として扱う。
func (s *ProductService) Upsert(ctx context.Context, callerID string, input ProductInput) (*model.Product, error) {
	if input.Name == "" {
		return nil, model.NewInvalidRequestError("商品名は必須です。")
	}
	if len(input.Variants) == 0 {
		return nil, model.NewInvalidRequestError("商品には1つ以上のバリアントが必要です。")
	}

	store, err := s.authorizeStore(ctx, callerID, input.StoreID)
	if err != nil {
		return nil, err
	}

	// 更新時は既存行を引いて作成時刻とスラグの既定値を引き継ぐ
	var existing *model.Product
	if input.ID != "" {
		existing, err = s.repo.FindByID(ctx, input.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to find product: %w", err)
		}
		if existing == nil {
			return nil, model.NewEntityNotFoundError("商品", input.ID)
		}
		if existing.StoreID != store.ID {
			return nil, model.NewForbiddenError()
		}
	}

	slug := input.Slug
	switch {
	case slug == "" && existing != nil:
		slug = existing.Slug
	case slug == "":
		slug, err = GenerateUniqueSlug(ctx, s.repo, input.Name, input.ID)
		if err != nil {
			return nil, err
		}
	default:
		exists, err := s.repo.SlugExists(ctx, slug, input.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check slug: %w", err)
		}
		if exists {
			return nil, model.NewUniqueConflictError("slug")
		}
	}

	now := time.Now()
	p := &model.Product{
		ID:            input.ID,
		StoreID:       store.ID,
		CategoryID:    input.CategoryID,
		SubCategoryID: input.SubCategoryID,
		Name:          input.Name,
		Slug:          slug,
		Description:   s.sanitizer.Sanitize(input.Description),
		Brand:         input.Brand,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if existing != nil {
		p.CreatedAt = existing.CreatedAt
	}

	for _, v := range input.Variants {
		if v.SKU == "" {
			return nil, model.NewInvalidRequestError("バリアントのSKUは必須です。")
		}
		if v.PriceCents < 0 {
			return nil, model.NewInvalidRequestError("バリアントの価格は0以上である必要があります。")
		}
		variant := model.ProductVariant{
			ID:         v.ID,
			ProductID:  p.ID,
			Name:       v.Name,
			SKU:        v.SKU,
			PriceCents: v.PriceCents,
			Quantity:   v.Quantity,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if variant.ID == "" {
			variant.ID = uuid.New().String()
		}
		p.Variants = append(p.Variants, variant)
	}

	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, mapConflict(err)
	}

	s.logger.Info("商品を保存しました",
		slog.String("product_id", p.ID),
		slog.String("store_id", p.StoreID),
		slog.String("slug", p.Slug),
	)
	return p, nil
}

// Delete は指定IDの商品を削除する。ストア所有者またはADMINのみ許可される。
func (s *ProductService) Delete(ctx context.Context, callerID, id string) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find product: %w", err)
	}
	if p == nil {
		return model.NewEntityNotFoundError("商品", id)
	}

	if _, err := s.authorizeStore(ctx, callerID, p.StoreID); err != nil {
		return err
	}

	if _, err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.logger.Info("商品を削除しました", slog.String("product_id", id))
	return nil
}

// authorizeStore は対象ストアを取得し、呼び出しユーザーが
// 所有者またはADMINであることを確認する。
func (s *ProductService) authorizeStore(ctx context.Context, callerID, storeID string) (*model.Store, error) {
	caller, err := s.users.FindByID(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find caller: %w", err)
	}
	if caller == nil {
		return nil, model.NewUnauthorizedError()
	}

	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to find store: %w", err)
	}
	if store == nil {
		return nil, model.NewEntityNotFoundError("ストア", storeID)
	}
	if caller.Role != model.RoleAdmin && store.UserID != callerID {
		return nil, model.NewForbiddenError()
	}
	return store, nil
}
