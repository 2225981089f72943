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

// StoreInput はストアのUPSERT入力。IDが空の場合は新規作成する。
type StoreInput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	LogoURL     string `json:"logo_url"`
	// StatusはADMINのみ変更可能。出店者の入力では無視される。
	Status string `json:"status"`
}

// StoreService はストアのビジネスロジックを提供する。
// 変更系は所有者のSELLERまたはADMINに限定される。
type StoreService struct {
	repo      repository.StoreRepository
	users     repository.UserRepository
	sanitizer security.ContentSanitizerService
	logo      *LogoValidator
	logger    *slog.Logger
}

// NewStoreService はStoreServiceを生成する。
func NewStoreService(
	repo repository.StoreRepository,
	users repository.UserRepository,
	sanitizer security.ContentSanitizerService,
	logo *LogoValidator,
	logger *slog.Logger,
) *StoreService {
	return &StoreService{
		repo:      repo,
		users:     users,
		sanitizer: sanitizer,
		logo:      logo,
		logger:    logger,
	}
}

// List は全ストアを取得する。
func (s *StoreService) List(ctx context.Context) ([]*model.Store, error) {
	return s.repo.List(ctx)
}

// Get は指定IDのストアを取得する。
func (s *StoreService) Get(ctx context.Context, id string) (*model.Store, error) {
	store, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find store: %w", err)
	}
	if store == nil {
		return nil, model.NewEntityNotFoundError("ストア", id)
	}
	return store, nil
}

// GetMine は呼び出しユーザーが所有するストアを取得する。
func (s *StoreService) GetMine(ctx context.Context, callerID string) (*model.Store, error) {
	store, err := s.repo.FindByUserID(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find store by user: %w", err)
	}
	if store == nil {
		return nil, model.NewEntityNotFoundError("ストア", callerID)
	}
	return store, nil
}

// Upsert はストアを作成または更新する。
// 説明文はサニタイズし、ロゴURLはSSRF防止付きで検証する。
// 公開状態（status）の変更はADMINのみ許可される。
func (s *StoreService) Upsert(ctx context.Context, callerID string, input StoreInput) (*model.Store, error) {
	if input.Name == "" {
		return nil, model.NewInvalidRequestError("ストア名は必須です。")
	}
	if input.URL == "" {
		return nil, model.NewInvalidRequestError("ストアURLは必須です。")
	}

	caller, err := s.users.FindByID(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find caller: %w", err)
	}
	if caller == nil {
		return nil, model.NewUnauthorizedError()
	}
	isAdmin := caller.Role == model.RoleAdmin

	if field, err := s.repo.FindConflict(ctx, input.ID, input.Name, input.URL); err != nil {
		return nil, fmt.Errorf("failed to check store conflict: %w", err)
	} else if field != "" {
		return nil, model.NewUniqueConflictError(field)
	}

	if err := s.logo.Validate(ctx, input.LogoURL); err != nil {
		return nil, err
	}

	now := time.Now()
	store := &model.Store{
		ID:          input.ID,
		UserID:      callerID,
		Name:        input.Name,
		URL:         input.URL,
		Description: s.sanitizer.Sanitize(input.Description),
		LogoURL:     input.LogoURL,
		Status:      model.StoreStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if input.ID != "" {
		existing, err := s.repo.FindByID(ctx, input.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to find store: %w", err)
		}
		if existing == nil {
			return nil, model.NewEntityNotFoundError("ストア", input.ID)
		}
		if !isAdmin && existing.UserID != callerID {
			return nil, model.NewForbiddenError()
		}
		// 所有者と公開状態は既存行から引き継ぐ
		store.UserID = existing.UserID
		store.Status = existing.Status
		store.CreatedAt = existing.CreatedAt
	} else {
		store.ID = uuid.New().String()
		// 1ユーザー1ストア。既に所有している場合は新規作成を拒否する
		owned, err := s.repo.FindByUserID(ctx, callerID)
		if err != nil {
			return nil, fmt.Errorf("failed to find store by user: %w", err)
		}
		if owned != nil {
			return nil, model.NewUniqueConflictError("user_id")
		}
	}

	// 公開状態の変更はADMINのみ
	if isAdmin && input.Status != "" {
		store.Status = model.StoreStatus(input.Status)
	}

	if err := s.repo.Upsert(ctx, store); err != nil {
		return nil, mapConflict(err)
	}

	s.logger.Info("ストアを保存しました",
		slog.String("store_id", store.ID),
		slog.String("user_id", store.UserID),
	)
	return store, nil
}

// Delete は指定IDのストアを削除する。所有者またはADMINのみ許可される。
func (s *StoreService) Delete(ctx context.Context, callerID, id string) error {
	caller, err := s.users.FindByID(ctx, callerID)
	if err != nil {
		return fmt.Errorf("failed to find caller: %w", err)
	}
	if caller == nil {
		return model.NewUnauthorizedError()
	}

	store, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find store: %w", err)
	}
	if store == nil {
		return model.NewEntityNotFoundError("ストア", id)
	}
	if caller.Role != model.RoleAdmin && store.UserID != callerID {
		return model.NewForbiddenError()
	}

	if _, err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}

	s.logger.Info("ストアを削除しました", slog.String("store_id", id))
	return nil
}
