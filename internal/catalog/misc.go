package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/bazaar/internal/model"
	"github.com/hitoshi/bazaar/internal/repository"
)

// SizeInput はサイズ展開のUPSERT入力。
type SizeInput struct {
	ID         string `json:"id"`
	VariantID  string `json:"variant_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

// SizeService はバリアントのサイズ展開のビジネスロジックを提供する。
type SizeService struct {
	repo   repository.SizeRepository
	logger *slog.Logger
}

// NewSizeService はSizeServiceを生成する。
func NewSizeService(repo repository.SizeRepository, logger *slog.Logger) *SizeService {
	return &SizeService{repo: repo, logger: logger}
}

// ListByVariant は指定バリアントのサイズ一覧を取得する。
func (s *SizeService) ListByVariant(ctx context.Context, variantID string) ([]*model.Size, error) {
	return s.repo.ListByVariant(ctx, variantID)
}

// Upsert はサイズを作成または更新する。
func (s *SizeService) Upsert(ctx context.Context, input SizeInput) (*model.Size, error) {
	if input.Name == "" {
		return nil, model.NewInvalidRequestError("サイズ名は必須です。")
	}
	if input.VariantID == "" {
		return nil, model.NewInvalidRequestError("バリアントIDは必須です。")
	}

	now := time.Now()
	size := &model.Size{
		ID:         input.ID,
		VariantID:  input.VariantID,
		Name:       input.Name,
		PriceCents: input.PriceCents,
		Quantity:   input.Quantity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if size.ID == "" {
		size.ID = uuid.New().String()
	}

	if err := s.repo.Upsert(ctx, size); err != nil {
		return nil, mapConflict(err)
	}
	return size, nil
}

// Delete は指定IDのサイズを削除する。
func (s *SizeService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete size: %w", err)
	}
	if !deleted {
		return model.NewEntityNotFoundError("サイズ", id)
	}
	return nil
}

// CountryInput は国マスタのUPSERT入力。
type CountryInput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// CountryService は配送先の国マスタのビジネスロジックを提供する。
type CountryService struct {
	repo   repository.CountryRepository
	logger *slog.Logger
}

// NewCountryService はCountryServiceを生成する。
func NewCountryService(repo repository.CountryRepository, logger *slog.Logger) *CountryService {
	return &CountryService{repo: repo, logger: logger}
}

// List は全国を取得する。
func (s *CountryService) List(ctx context.Context) ([]*model.Country, error) {
	return s.repo.List(ctx)
}

// Upsert は国を作成または更新する。name/codeの衝突はカテゴリと同様に扱う。
func (s *CountryService) Upsert(ctx context.Context, input CountryInput) (*model.Country, error) {
	if input.Name == "" {
		return nil, model.NewInvalidRequestError("国名は必須です。")
	}
	if input.Code == "" {
		return nil, model.NewInvalidRequestError("国コードは必須です。")
	}

	if field, err := s.repo.FindConflict(ctx, input.ID, input.Name, input.Code); err != nil {
		return nil, fmt.Errorf("failed to check country conflict: %w", err)
	} else if field != "" {
		return nil, model.NewUniqueConflictError(field)
	}

	now := time.Now()
	c := &model.Country{
		ID:        input.ID,
		Name:      input.Name,
		Code:      input.Code,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	if err := s.repo.Upsert(ctx, c); err != nil {
		return nil, mapConflict(err)
	}
	return c, nil
}

// Delete は指定IDの国を削除する。
func (s *CountryService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete country: %w", err)
	}
	if !deleted {
		return model.NewEntityNotFoundError("国", id)
	}
	return nil
}

// CouponInput はクーポンのUPSERT入力。
type CouponInput struct {
	ID       string    `json:"id"`
	StoreID  string    `json:"store_id"`
	Code     string    `json:"code"`
	Discount int       `json:"discount"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// CouponService はストア単位のクーポンのビジネスロジックを提供する。
// 変更系はストア所有者またはADMINに限定される。
type CouponService struct {
	repo   repository.CouponRepository
	stores repository.StoreRepository
	users  repository.UserRepository
	logger *slog.Logger
}

// NewCouponService はCouponServiceを生成する。
func NewCouponService(
	repo repository.CouponRepository,
	stores repository.StoreRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *CouponService {
	return &CouponService{repo: repo, stores: stores, users: users, logger: logger}
}

// GetByCode はコードでクーポンを取得する。
func (s *CouponService) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	c, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to find coupon: %w", err)
	}
	if c == nil {
		return nil, model.NewEntityNotFoundError("クーポン", code)
	}
	return c, nil
}

// ListByStore は指定ストアのクーポン一覧を取得する。
func (s *CouponService) ListByStore(ctx context.Context, storeID string) ([]*model.Coupon, error) {
	return s.repo.ListByStore(ctx, storeID)
}

// Upsert はクーポンを作成または更新する。
func (s *CouponService) Upsert(ctx context.Context, callerID string, input CouponInput) (*model.Coupon, error) {
	if input.Code == "" {
		return nil, model.NewInvalidRequestError("クーポンコードは必須です。")
	}
	if input.Discount < 1 || input.Discount > 100 {
		return nil, model.NewInvalidRequestError("割引率は1〜100の範囲で指定してください。")
	}
	if !input.EndsAt.IsZero() && input.EndsAt.Before(input.StartsAt) {
		return nil, model.NewInvalidRequestError("終了日は開始日より後である必要があります。")
	}

	if err := s.authorizeStore(ctx, callerID, input.StoreID); err != nil {
		return nil, err
	}

	now := time.Now()
	c := &model.Coupon{
		ID:        input.ID,
		StoreID:   input.StoreID,
		Code:      input.Code,
		Discount:  input.Discount,
		StartsAt:  input.StartsAt,
		EndsAt:    input.EndsAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	if err := s.repo.Upsert(ctx, c); err != nil {
		return nil, mapConflict(err)
	}

	s.logger.Info("クーポンを保存しました",
		slog.String("coupon_id", c.ID),
		slog.String("store_id", c.StoreID),
	)
	return c, nil
}

// Delete は指定IDのクーポンを削除する。
func (s *CouponService) Delete(ctx context.Context, callerID, storeID, id string) error {
	if err := s.authorizeStore(ctx, callerID, storeID); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete coupon: %w", err)
	}
	if !deleted {
		return model.NewEntityNotFoundError("クーポン", id)
	}
	return nil
}

func (s *CouponService) authorizeStore(ctx context.Context, callerID, storeID string) error {
	caller, err := s.users.FindByID(ctx, callerID)
	if err != nil {
		return fmt.Errorf("failed to find caller: %w", err)
	}
	if caller == nil {
		return model.NewUnauthorizedError()
	}

	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		return fmt.Errorf("failed to find store: %w", err)
	}
	if store == nil {
		return model.NewEntityNotFoundError("ストア", storeID)
	}
	if caller.Role != model.RoleAdmin && store.UserID != callerID {
		return model.NewForbiddenError()
	}
	return nil
}
