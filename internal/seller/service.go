// Package seller は出店申請とメール検証のフローを提供する。
package seller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bazaar/internal/model"
	"github.com/hitoshi/bazaar/internal/repository"
)

// RoleSyncer はロール変更をIdPへ反映する。即時反映に失敗した場合は
// リトライキューへ退避し、falseを返す。
type RoleSyncer interface {
	PushRoleOrQueue(ctx context.Context, userID string, role model.Role) bool
}

// EmailSender は検証リンクのメール送信インターフェース。
type EmailSender interface {
	Send(to, subject, body string) error
}

// VerifyOutcome は検証フローの結果コード。リダイレクト先のクエリに載る。
type VerifyOutcome string

const (
	// OutcomeMissingToken はトークンが指定されなかった。
	OutcomeMissingToken VerifyOutcome = "missing-token"
	// OutcomeInvalidToken はトークンに対応する申請が存在しない。
	OutcomeInvalidToken VerifyOutcome = "invalid-token"
	// OutcomeExpiredToken はトークンが期限切れだった。
	OutcomeExpiredToken VerifyOutcome = "expired-token"
	// OutcomeAlreadyVerified は検証済みの申請への再検証（冪等成功）。
	OutcomeAlreadyVerified VerifyOutcome = "already-verified"
	// OutcomeSuccess は検証成功。ロールがSELLERに昇格した。
	OutcomeSuccess VerifyOutcome = "success"
	// OutcomeFailed は予期しない失敗。詳細はログにのみ残す。
	OutcomeFailed VerifyOutcome = "verification-failed"
)

// Succeeded は購入者向けに成功扱いで表示してよい結果かどうかを返す。
func (o VerifyOutcome) Succeeded() bool {
	return o == OutcomeSuccess || o == OutcomeAlreadyVerified
}

// VerifyResult は検証フローの結果。
// RoleSyncedがfalseの成功はIdPへのロール反映が保留中であることを示す。
type VerifyResult struct {
	Outcome    VerifyOutcome
	RoleSynced bool
}

// Service は出店申請の作成と検証を提供する。
type Service struct {
	requests repository.SellerRequestRepository
	users    repository.UserRepository
	roles    RoleSyncer
	email    EmailSender
	logger   *slog.Logger

	tokenTTL  time.Duration
	verifyURL string
	now       func() time.Time
}

// NewService はServiceを生成する。verifyURLは検証エンドポイントの
// 絶対URLで、メール本文のリンクに ?token=... を付けて使う。
func NewService(
	requests repository.SellerRequestRepository,
	users repository.UserRepository,
	roles RoleSyncer,
	email EmailSender,
	logger *slog.Logger,
	tokenTTL time.Duration,
	verifyURL string,
) *Service {
	return &Service{
		requests:  requests,
		users:     users,
		roles:     roles,
		email:     email,
		logger:    logger,
		tokenTTL:  tokenTTL,
		verifyURL: verifyURL,
		now:       time.Now,
	}
}

// Request は認証済みユーザーの出店申請を作成し、検証リンクをメールで送る。
// 申請はユーザーごとに1件まで。PENDINGまたは検証済みの申請がある場合は
// 重複エラーを返す。EXPIREDの申請は新しい申請で置き換える。
// メール送信の失敗は申請の成否に影響しない。
func (s *Service) Request(ctx context.Context, userID string) (*model.SellerRequest, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}

	existing, err := s.requests.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find seller request: %w", err)
	}
	if existing != nil {
		if existing.Status != model.SellerRequestExpired {
			return nil, model.NewSellerRequestExistsError()
		}
		// 期限切れの申請は再申請を妨げない
		if err := s.requests.DeleteExpired(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to replace expired seller request: %w", err)
		}
	}

	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	req := &model.SellerRequest{
		ID:                uuid.New().String(),
		UserID:            userID,
		VerificationToken: uuid.New().String(),
		TokenExpiresAt:    &expiresAt,
		Status:            model.SellerRequestPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		if _, ok := repository.UniqueViolationField(err); ok {
			// 並行する再申請が先に作成した
			return nil, model.NewSellerRequestExistsError()
		}
		return nil, fmt.Errorf("failed to create seller request: %w", err)
	}

	s.sendVerificationEmail(user, req)

	s.logger.Info("出店申請を作成しました",
		slog.String("request_id", req.ID),
		slog.String("user_id", userID),
	)
	return req, nil
}

// Verify は検証トークンを消費し、申請をVERIFIEDへ遷移させると同時に
// ユーザーのロールをSELLERへ昇格する（1トランザクション）。
// コミット後のIdPへのロール反映はベストエフォートで、失敗時は
// リトライキューへ退避してRoleSynced=falseの成功を返す。
// 予期しない失敗はすべてOutcomeFailedに落とし、詳細はログに残す。
func (s *Service) Verify(ctx context.Context, token string) VerifyResult {
	if token == "" {
		return VerifyResult{Outcome: OutcomeMissingToken}
	}

	req, err := s.requests.FindByToken(ctx, token)
	if err != nil {
		s.logger.Error("出店申請の検索に失敗しました", slog.String("error", err.Error()))
		return VerifyResult{Outcome: OutcomeFailed}
	}
	if req == nil {
		return VerifyResult{Outcome: OutcomeInvalidToken}
	}

	if req.TokenExpiresAt != nil && req.TokenExpiresAt.Before(s.now()) {
		return VerifyResult{Outcome: OutcomeExpiredToken}
	}

	if !req.Status.Consumable() {
		return VerifyResult{Outcome: OutcomeAlreadyVerified, RoleSynced: true}
	}

	consumed, err := s.requests.MarkVerified(ctx, req.ID, req.UserID)
	if err != nil {
		s.logger.Error("出店申請の検証に失敗しました",
			slog.String("request_id", req.ID),
			slog.String("error", err.Error()),
		)
		return VerifyResult{Outcome: OutcomeFailed}
	}
	if !consumed {
		// 並行リクエストが先にトークンを消費した
		return VerifyResult{Outcome: OutcomeAlreadyVerified, RoleSynced: true}
	}

	synced := s.roles.PushRoleOrQueue(ctx, req.UserID, model.RoleSeller)

	s.logger.Info("出店申請を検証しました",
		slog.String("request_id", req.ID),
		slog.String("user_id", req.UserID),
		slog.Bool("role_synced", synced),
	)
	return VerifyResult{Outcome: OutcomeSuccess, RoleSynced: synced}
}

// sendVerificationEmail は検証リンクをメールで送る。失敗はログのみ。
func (s *Service) sendVerificationEmail(user *model.User, req *model.SellerRequest) {
	if user.Email == "" {
		s.logger.Warn("メールアドレス未設定のため検証メールを送信できません",
			slog.String("user_id", user.ID),
		)
		return
	}

	link := s.verifyURL + "?token=" + req.VerificationToken
	body := fmt.Sprintf(
		"出店申請を受け付けました。\n\n以下のリンクを開いてメールアドレスを確認してください。\nリンクの有効期限は %s です。\n\n%s\n",
		req.TokenExpiresAt.Format("2006-01-02 15:04 MST"),
		link,
	)
	if err := s.email.Send(user.Email, "【bazaar】出店申請のメール確認", body); err != nil {
		s.logger.Error("検証メールの送信に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}
