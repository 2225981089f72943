package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/bazaar/internal/model"
	"github.com/hitoshi/bazaar/internal/repository"
)

// CategoryInput はカテゴリのUPSERT入力。IDが空の場合は新規作成する。
type CategoryInput struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
	Featured bool   `json:"featured"`
}

// CategoryService はカテゴリのビジネスロジックを提供する。
// 変更系はADMIN限定（認可はミドルウェア層で行う）。
type CategoryService struct {
	repo     repository.CategoryRepository
	cache    Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewCategoryService はCategoryServiceを生成する。
func NewCategoryService(repo repository.CategoryRepository, cache Cache, cacheTTL time.Duration, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// List は全カテゴリを取得する。
func (s *CategoryService) List(ctx context.Context) ([]*model.Category, error) {
	return s.repo.List(ctx)
}

// Get は指定IDのカテゴリを取得する。
func (s *CategoryService) Get(ctx context.Context, id string) (*model.Category, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	if c == nil {
		return nil, model.NewEntityNotFoundError("カテゴリ", id)
	}
	return c, nil
}

// ListWithSubCategories はホーム表示用のカテゴリ＋サブカテゴリ一覧を返す。
// 共有キャッシュにTTL付きで保持し、キャッシュ障害時はDBに素通しする。
func (s *CategoryService) ListWithSubCategories(ctx context.Context) ([]*model.CategoryWithSubs, error) {
	if cached, err := s.cache.Get(ctx, homeCacheKey); err != nil {
		s.logger.Warn("ホームキャッシュの読み取りに失敗しました",
			slog.String("error", err.Error()),
		)
	} else if cached != nil {
		var result []*model.CategoryWithSubs
		if err := json.Unmarshal(cached, &result); err == nil {
			return result, nil
		}
		// 壊れたエントリは読み捨ててDBから取り直す
	}

	result, err := s.repo.ListWithSubCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	if encoded, err := json.Marshal(result); err == nil {
		if err := s.cache.Set(ctx, homeCacheKey, encoded, s.cacheTTL); err != nil {
			s.logger.Warn("ホームキャッシュの書き込みに失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}

	return result, nil
}

// Upsert はカテゴリを作成または更新する。
// nameとurlの衝突は事前チェックで早期に検出しつつ、
// 最終的にはDBの一意制約違反を同じ衝突エラーに変換する。
func (s *CategoryService) Upsert(ctx context.Context, input CategoryInput) (*model.Category, error) {
	if input.Name == "" {
		return nil, model.NewInvalidRequestError("カテゴリ名は必須です。")
	}
	if input.URL == "" {
		return nil, model.NewInvalidRequestError("カテゴリURLは必須です。")
	}

	if field, err := s.repo.FindConflict(ctx, input.ID, input.Name, input.URL); err != nil {
		return nil, fmt.Errorf("failed to check category conflict: %w", err)
	} else if field != "" {
		return nil, model.NewUniqueConflictError(field)
	}

	now := time.Now()
	c := &model.Category{
		ID:        input.ID,
		Name:      input.Name,
		URL:       input.URL,
		ImageURL:  input.ImageURL,
		Featured:  input.Featured,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	if err := s.repo.Upsert(ctx, c); err != nil {
		return nil, mapConflict(err)
	}

	s.invalidateHome(ctx)

	s.logger.Info("カテゴリを保存しました",
		slog.String("category_id", c.ID),
		slog.String("name", c.Name),
	)
	return c, nil
}

// Delete は指定IDのカテゴリを削除する。
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if !deleted {
		return model.NewEntityNotFoundError("カテゴリ", id)
	}

	s.invalidateHome(ctx)

	s.logger.Info("カテゴリを削除しました", slog.String("category_id", id))
	return nil
}

// invalidateHome はホーム表示キャッシュを無効化する。
func (s *CategoryService) invalidateHome(ctx context.Context) {
	if err := s.cache.Delete(ctx, homeCacheKey); err != nil {
		s.logger.Warn("ホームキャッシュの無効化に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
