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

// SubCategoryInput はサブカテゴリのUPSERT入力。IDが空の場合は新規作成する。
type SubCategoryInput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	ImageURL   string `json:"image_url"`
	Featured   bool   `json:"featured"`
	CategoryID string `json:"category_id"`
}

// SubCategoryService はサブカテゴリのビジネスロジックを提供する。
type SubCategoryService struct {
	repo       repository.SubCategoryRepository
	categories repository.CategoryRepository
	cache      Cache
	logger     *slog.Logger
}

// NewSubCategoryService はSubCategoryServiceを生成する。
func NewSubCategoryService(
	repo repository.SubCategoryRepository,
	categories repository.CategoryRepository,
	cache Cache,
	logger *slog.Logger,
) *SubCategoryService {
	return &SubCategoryService{
		repo:       repo,
		categories: categories,
		cache:      cache,
		logger:     logger,
	}
}

// ListByCategory は指定カテゴリのサブカテゴリ一覧を取得する。
func (s *SubCategoryService) ListByCategory(ctx context.Context, categoryID string) ([]*model.SubCategory, error) {
	return s.repo.ListByCategory(ctx, categoryID)
}

// Get は指定IDのサブカテゴリを取得する。
func (s *SubCategoryService) Get(ctx context.Context, id string) (*model.SubCategory, error) {
	sc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find subcategory: %w", err)
	}
	if sc == nil {
		return nil, model.NewEntityNotFoundError("サブカテゴリ", id)
	}
	return sc, nil
}

// Upsert はサブカテゴリを作成または更新する。
// 親カテゴリの存在を確認し、name/urlの衝突はカテゴリと同様に扱う。
func (s *SubCategoryService) Upsert(ctx context.Context, input SubCategoryInput) (*model.SubCategory, error) {
	if input.Name == "" {
		return nil, model.NewInvalidRequestError("サブカテゴリ名は必須です。")
	}
	if input.URL == "" {
		return nil, model.NewInvalidRequestError("サブカテゴリURLは必須です。")
	}

	parent, err := s.categories.FindByID(ctx, input.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to find parent category: %w", err)
	}
	if parent == nil {
		return nil, model.NewEntityNotFoundError("カテゴリ", input.CategoryID)
	}

	if field, err := s.repo.FindConflict(ctx, input.ID, input.Name, input.URL); err != nil {
		return nil, fmt.Errorf("failed to check subcategory conflict: %w", err)
	} else if field != "" {
		return nil, model.NewUniqueConflictError(field)
	}

	now := time.Now()
	sc := &model.SubCategory{
		ID:         input.ID,
		Name:       input.Name,
		URL:        input.URL,
		ImageURL:   input.ImageURL,
		Featured:   input.Featured,
		CategoryID: input.CategoryID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}

	if err := s.repo.Upsert(ctx, sc); err != nil {
		return nil, mapConflict(err)
	}

	s.invalidateHome(ctx)

	s.logger.Info("サブカテゴリを保存しました",
		slog.String("subcategory_id", sc.ID),
		slog.String("category_id", sc.CategoryID),
	)
	return sc, nil
}

// Delete は指定IDのサブカテゴリを削除する。
func (s *SubCategoryService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete subcategory: %w", err)
	}
	if !deleted {
		return model.NewEntityNotFoundError("サブカテゴリ", id)
	}

	s.invalidateHome(ctx)

	s.logger.Info("サブカテゴリを削除しました", slog.String("subcategory_id", id))
	return nil
}

func (s *SubCategoryService) invalidateHome(ctx context.Context) {
	if err := s.cache.Delete(ctx, homeCacheKey); err != nil {
		s.logger.Warn("ホームキャッシュの無効化に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
