// Package cleanup は出品者申請の自動整理ジョブを提供する。
// 検証トークンの有効期限を過ぎたPENDING申請をEXPIREDに更新し、
// EXPIREDのまま保持期間（デフォルト30日）を超過した申請を日次バッチで削除する。
// 期限切れの申請が消えることで、ユーザーは再申請できるようになる。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は期限切れ出品者申請の自動整理ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な処理を保証する。
type CleanupJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int // EXPIRED申請の保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は30日。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:            db,
		logger:        logger,
		RetentionDays: 30,
	}
}

// Run は期限切れの出品者申請を整理する。
// token_expires_atを過ぎたPENDING申請をEXPIREDに更新し、
// updated_atがRetentionDays日前より古いEXPIRED申請をDELETEする。
// 冪等: 対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	expireQuery := `UPDATE seller_requests
		SET status = 'EXPIRED', updated_at = now()
		WHERE status = 'PENDING' AND token_expires_at IS NOT NULL AND token_expires_at < now()`
	expireResult, err := j.db.ExecContext(ctx, expireQuery)
	if err != nil {
		j.logger.Error("出品者申請の期限切れ処理に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("出品者申請の期限切れ処理に失敗: %w", err)
	}

	expiredCount, err := expireResult.RowsAffected()
	if err != nil {
		j.logger.Error("期限切れ件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れ件数の取得に失敗: %w", err)
	}

	interval := fmt.Sprintf("%d days", j.RetentionDays)

	purgeQuery := `DELETE FROM seller_requests
		WHERE status = 'EXPIRED' AND updated_at < now() - $1::interval`
	purgeResult, err := j.db.ExecContext(ctx, purgeQuery, interval)
	if err != nil {
		j.logger.Error("期限切れ申請の削除に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("期限切れ申請の削除に失敗: %w", err)
	}

	deletedCount, err := purgeResult.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("出品者申請の整理ジョブが完了しました",
		slog.Int64("expired_count", expiredCount),
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
