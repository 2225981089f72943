package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bazaar/internal/model"
)

// PostgresSellerRequestRepo はPostgreSQLを使用した出店申請リポジトリ。
type PostgresSellerRequestRepo struct {
	db *sql.DB
}

// NewPostgresSellerRequestRepo はPostgresSellerRequestRepoを生成する。
func NewPostgresSellerRequestRepo(db *sql.DB) *PostgresSellerRequestRepo {
	return &PostgresSellerRequestRepo{db: db}
}

const sellerRequestColumns = `id, user_id, verification_token, token_expires_at, status, created_at, updated_at`

// scanSellerRequest は1行をSellerRequestにスキャンする。
func scanSellerRequest(row *sql.Row) (*model.SellerRequest, error) {
	req := &model.SellerRequest{}
	var expiresAt sql.NullTime

	err := row.Scan(&req.ID, &req.UserID, &req.VerificationToken,
		&expiresAt, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if expiresAt.Valid {
		req.TokenExpiresAt = &expiresAt.Time
	}
	return req, nil
}

// FindByToken は検証トークンで申請を検索する。見つからない場合はnilを返す。
func (r *PostgresSellerRequestRepo) FindByToken(ctx context.Context, token string) (*model.SellerRequest, error) {
	req, err := scanSellerRequest(r.db.QueryRowContext(ctx,
		`SELECT `+sellerRequestColumns+` FROM seller_requests WHERE verification_token = $1`,
		token,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find seller request by token: %w", err)
	}
	return req, nil
}

// FindByUserID はユーザーIDで申請を検索する。見つからない場合はnilを返す。
func (r *PostgresSellerRequestRepo) FindByUserID(ctx context.Context, userID string) (*model.SellerRequest, error) {
	req, err := scanSellerRequest(r.db.QueryRowContext(ctx,
		`SELECT `+sellerRequestColumns+` FROM seller_requests WHERE user_id = $1`,
		userID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find seller request by user ID: %w", err)
	}
	return req, nil
}

// Create は申請を作成する。
func (r *PostgresSellerRequestRepo) Create(ctx context.Context, req *model.SellerRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO seller_requests (id, user_id, verification_token, token_expires_at, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		req.ID, req.UserID, req.VerificationToken, req.TokenExpiresAt,
		req.Status, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create seller request: %w", err)
	}
	return nil
}

// DeleteExpired は指定IDの申請がEXPIREDの場合に限り削除する。
// statusを条件に含めることで、並行する検証でVERIFIEDへ遷移した
// 申請を誤って消すことはない。0件削除でもエラーにしない。
func (r *PostgresSellerRequestRepo) DeleteExpired(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM seller_requests WHERE id = $1 AND status = 'EXPIRED'`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete expired seller request: %w", err)
	}
	return nil
}

// MarkVerified は申請をVERIFIEDに遷移させ、同一トランザクションで
// ユーザーのロールをSELLERに昇格する。
// 遷移は status NOT IN ('VERIFIED', 'APPROVED') を条件とした
// 条件付きUPDATEで行うため、同一トークンの並行検証でも
// 消費されるのは最大1回となる。消費済みの場合はfalseを返す。
func (r *PostgresSellerRequestRepo) MarkVerified(ctx context.Context, requestID, userID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE seller_requests
		 SET status = 'VERIFIED', updated_at = now()
		 WHERE id = $1 AND status NOT IN ('VERIFIED', 'APPROVED')`,
		requestID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark seller request verified: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// 別のリクエストが先に消費した（またはAPPROVED済み）
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET role = $2, updated_at = now() WHERE id = $1`,
		userID, model.RoleSeller,
	); err != nil {
		return false, fmt.Errorf("failed to upgrade user role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

// compile-time interface check
var _ SellerRequestRepository = (*PostgresSellerRequestRepo)(nil)
