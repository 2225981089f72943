package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/bazaar/internal/model"
	"github.com/hitoshi/bazaar/internal/repository"
)

// RolePusher はIdPへのロール書き込みの抽象化。
type RolePusher interface {
	// PushRole は指定ユーザーのロールをIdPメタデータへ書き込む。
	PushRole(ctx context.Context, userID string, role model.Role) error
}

// SyncResult はロール一括同期の結果。
type SyncResult struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// Service はIdPとの同期に関するビジネスロジックを提供する。
// Webhookイベントのローカル適用と、ローカルroleのIdPへの逆同期を担う。
type Service struct {
	userRepo repository.UserRepository
	outbox   repository.RoleSyncOutboxRepository
	pusher   RolePusher
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	outbox repository.RoleSyncOutboxRepository,
	pusher RolePusher,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepo: userRepo,
		outbox:   outbox,
		pusher:   pusher,
		logger:   logger,
	}
}

// ApplyEvent はIdPイベントをローカルDBへ適用する。
// user.created / user.updated はUPSERT（既存行のroleは保持）後に
// ローカルroleをIdPへ逆同期する。user.deleted は冪等に削除する。
// 未知のイベント種別はログのみで正常終了する。
// DB適用の失敗はエラーとして返す（送信側の再送に委ねる）。
func (s *Service) ApplyEvent(ctx context.Context, evt *Event) error {
	switch evt.Type {
	case EventUserCreated, EventUserUpdated:
		return s.applyUserUpsert(ctx, evt)

	case EventUserDeleted:
		return s.applyUserDelete(ctx, evt)

	default:
		s.logger.Info("未対応のIdPイベントを無視します",
			slog.String("event_type", evt.Type),
		)
		return nil
	}
}

func (s *Service) applyUserUpsert(ctx context.Context, evt *Event) error {
	var payload userPayload
	if err := json.Unmarshal(evt.Data, &payload); err != nil {
		return fmt.Errorf("failed to parse user payload: %w", err)
	}
	if payload.ID == "" {
		return fmt.Errorf("user payload has no id")
	}

	now := time.Now()
	user := &model.User{
		ID:        payload.ID,
		Email:     payload.primaryEmail(),
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		ImageURL:  payload.ImageURL,
		Phone:     payload.firstPhone(),
		Role:      model.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	// ローカルのroleが権威のため、適用後の行から読み直して逆同期する
	stored, err := s.userRepo.FindByID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to reload user: %w", err)
	}
	if stored == nil {
		return fmt.Errorf("user disappeared after upsert: %s", user.ID)
	}

	s.PushRoleOrQueue(ctx, stored.ID, stored.Role)

	s.logger.Info("IdPイベントを適用しました",
		slog.String("event_type", evt.Type),
		slog.String("user_id", stored.ID),
	)
	return nil
}

func (s *Service) applyUserDelete(ctx context.Context, evt *Event) error {
	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(evt.Data, &payload); err != nil {
		return fmt.Errorf("failed to parse delete payload: %w", err)
	}
	if payload.ID == "" {
		return fmt.Errorf("delete payload has no id")
	}

	if err := s.userRepo.DeleteByID(ctx, payload.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.Info("IdPイベントでユーザーを削除しました",
		slog.String("user_id", payload.ID),
	)
	return nil
}

// PushRoleOrQueue はIdPへのロール逆同期を試み、失敗した場合は
// outboxに退避してワーカーの再試行に委ねる。同期成功でtrueを返す。
// DB適用済みの状態を巻き戻さないため、逆同期の失敗はエラーにしない。
func (s *Service) PushRoleOrQueue(ctx context.Context, userID string, role model.Role) bool {
	err := s.pusher.PushRole(ctx, userID, role)
	if err == nil {
		return true
	}

	s.logger.Warn("IdPへのロール逆同期に失敗しました。outboxに退避します",
		slog.String("user_id", userID),
		slog.String("role", string(role)),
		slog.String("error", err.Error()),
	)

	if err := s.outbox.Enqueue(ctx, userID, role); err != nil {
		// outboxにも書けない場合はログに残すしかない
		s.logger.Error("ロール逆同期のoutbox退避に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	return false
}

// SetRole はローカルのロールを更新し、IdPへ逆同期する。
// 戻り値は逆同期が即時成功したかどうか。
func (s *Service) SetRole(ctx context.Context, userID string, role model.Role) (bool, error) {
	if !role.IsValid() {
		return false, model.NewInvalidRoleError(string(role))
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return false, model.NewUserNotFoundError()
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return false, fmt.Errorf("failed to update role: %w", err)
	}

	synced := s.PushRoleOrQueue(ctx, userID, role)

	s.logger.Info("ユーザーのロールを更新しました",
		slog.String("user_id", userID),
		slog.String("role", string(role)),
		slog.Bool("synced", synced),
	)
	return synced, nil
}

// SyncUser は指定ユーザーのローカルroleをIdPへ再送する。
func (s *Service) SyncUser(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.pusher.PushRole(ctx, userID, user.Role); err != nil {
		return fmt.Errorf("failed to push role: %w", err)
	}
	return nil
}

// SyncAll は全ユーザーのローカルroleをIdPへ再送し、件数を報告する。
// 個別の失敗は数え上げるのみで処理を止めない。
func (s *Service) SyncAll(ctx context.Context) (*SyncResult, error) {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	result := &SyncResult{}
	for _, u := range users {
		if err := s.pusher.PushRole(ctx, u.ID, u.Role); err != nil {
			result.Failed++
			s.logger.Warn("ロール一括同期で個別の失敗が発生しました",
				slog.String("user_id", u.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		result.Synced++
	}

	s.logger.Info("ロール一括同期が完了しました",
		slog.Int("synced", result.Synced),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}
