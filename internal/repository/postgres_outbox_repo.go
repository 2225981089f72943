package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bazaar/internal/model"
)

// PostgresRoleSyncOutboxRepo はPostgreSQLを使用した
// ロール逆同期再試行キューのリポジトリ。
type PostgresRoleSyncOutboxRepo struct {
	db *sql.DB
}

// NewPostgresRoleSyncOutboxRepo はPostgresRoleSyncOutboxRepoを生成する。
func NewPostgresRoleSyncOutboxRepo(db *sql.DB) *PostgresRoleSyncOutboxRepo {
	return &PostgresRoleSyncOutboxRepo{db: db}
}

// Enqueue は再試行エントリをUPSERTする。同一ユーザーのエントリが
// 既にある場合はロールを上書きし、次回試行を即時にリセットする。
func (r *PostgresRoleSyncOutboxRepo) Enqueue(ctx context.Context, userID string, role model.Role) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO role_sync_outbox (id, user_id, role, attempts, next_attempt_at, created_at)
		 VALUES ($1, $2, $3, 0, now(), now())
		 ON CONFLICT (user_id) DO UPDATE SET
		   role = EXCLUDED.role,
		   attempts = 0,
		   next_attempt_at = now(),
		   last_error = ''`,
		uuid.New().String(), userID, role,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue role sync: %w", err)
	}
	return nil
}

// claimLease は取得したエントリを他のワーカーから見えなくする期間。
// 処理がこの期間を超えて失敗もDelete もされなかった場合
// (ワーカーのクラッシュなど)、エントリは再び取得対象に戻る。
const claimLease = 5 * time.Minute

// ListDue はnext_attempt_atが現在時刻以前のエントリをattempts昇順で取得する。
// 単一文のUPDATE ... WHERE id IN (SELECT ... FOR UPDATE SKIP LOCKED)で
// next_attempt_atをリースぶん先送りしながら取得するため、行ロックが
// 文の終了で解放された後も他のワーカーは同じエントリを取得しない。
func (r *PostgresRoleSyncOutboxRepo) ListDue(ctx context.Context, limit int) ([]*RoleSyncEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`UPDATE role_sync_outbox
		 SET next_attempt_at = now() + $2::interval
		 WHERE id IN (
		   SELECT id FROM role_sync_outbox
		   WHERE next_attempt_at <= now()
		   ORDER BY attempts, next_attempt_at
		   LIMIT $1
		   FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, user_id, role, attempts, next_attempt_at, last_error, created_at`,
		limit, fmt.Sprintf("%d seconds", int(claimLease.Seconds())),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list due role syncs: %w", err)
	}
	defer rows.Close()

	var entries []*RoleSyncEntry
	for rows.Next() {
		e := &RoleSyncEntry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Role, &e.Attempts,
			&e.NextAttemptAt, &e.LastError, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role sync entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate role sync entries: %w", err)
	}
	return entries, nil
}

// MarkFailed は試行失敗を記録し、次回試行時刻を設定する。
func (r *PostgresRoleSyncOutboxRepo) MarkFailed(ctx context.Context, id string, nextAttemptAt time.Time, lastError string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE role_sync_outbox
		 SET attempts = attempts + 1, next_attempt_at = $2, last_error = $3
		 WHERE id = $1`,
		id, nextAttemptAt, lastError,
	)
	if err != nil {
		return fmt.Errorf("failed to mark role sync failed: %w", err)
	}
	return nil
}

// Delete は同期成功したエントリを削除する。
func (r *PostgresRoleSyncOutboxRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM role_sync_outbox WHERE id = $1`, id,
	); err != nil {
		return fmt.Errorf("failed to delete role sync entry: %w", err)
	}
	return nil
}

// compile-time interface check
var _ RoleSyncOutboxRepository = (*PostgresRoleSyncOutboxRepo)(nil)
