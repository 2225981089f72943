// Package rolesync はIdPへのロール逆同期の再試行ワーカーを提供する。
// Webhook処理や検証フローで即時反映に失敗したロール変更はoutboxに
// 退避され、このワーカーが指数バックオフで再送する。
package rolesync

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/bazaar/internal/model"
	"github.com/hitoshi/bazaar/internal/repository"
)

// RolePusher はIdPメタデータAPIへのロール書き込みインターフェース。
type RolePusher interface {
	PushRole(ctx context.Context, userID string, role model.Role) error
}

// FailureRecorder はロール同期失敗のメトリクス記録インターフェース。
type FailureRecorder interface {
	RecordRoleSyncFailure()
}

const (
	// initialBackoff は指数バックオフの初回遅延（1分）。
	initialBackoff = time.Minute
	// maxBackoff は指数バックオフの最大遅延（1時間）。
	maxBackoff = time.Hour
	// maxAttempts は再試行の上限。これを超えたエントリは破棄する。
	maxAttempts = 10
	// defaultBatchSize は1サイクルで処理するエントリ数の上限。
	defaultBatchSize = 50
)

// CalculateBackoff は試行回数に基づいて指数バックオフ遅延を計算する。
// 初回1分、2倍ずつ増加、最大1時間。
func CalculateBackoff(attempts int) time.Duration {
	delay := initialBackoff
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// Worker はoutboxのロール同期エントリをポーリングして再送する。
type Worker struct {
	outbox    repository.RoleSyncOutboxRepository
	pusher    RolePusher
	metrics   FailureRecorder
	logger    *slog.Logger
	batchSize int
}

// NewWorker はWorkerの新しいインスタンスを生成する。
// batchSizeが0以下の場合はデフォルト値50を使用する。
func NewWorker(
	outbox repository.RoleSyncOutboxRepository,
	pusher RolePusher,
	metrics FailureRecorder,
	logger *slog.Logger,
	batchSize int,
) *Worker {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Worker{
		outbox:    outbox,
		pusher:    pusher,
		metrics:   metrics,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Start は指定間隔のティッカーでワーカーを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (w *Worker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("ロール同期ワーカーを開始しました",
		slog.Duration("interval", interval),
		slog.Int("batch_size", w.batchSize),
	)

	// 起動直後に1回実行
	if err := w.RunOnce(ctx); err != nil {
		w.logger.Error("ロール同期サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("ロール同期ワーカーを停止しました")
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("ロール同期サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は再送期限の到来したエントリを1回取得して処理する。
// 取得はリース付きで行われ、リース中は他のワーカーに同じエントリが
// 渡らない。リース切れで重複配信が起きても、同期のプッシュは
// 冪等でDeleteも冪等なため安全に処理できる。
func (w *Worker) RunOnce(ctx context.Context) error {
	entries, err := w.outbox.ListDue(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	w.logger.Info("ロール同期サイクルを開始します", slog.Int("entry_count", len(entries)))

	for _, entry := range entries {
		w.processEntry(ctx, entry)
	}
	return nil
}

// processEntry は1エントリの再送を試みる。
// 成功したらエントリを削除し、失敗したら次回試行をバックオフで設定する。
// 試行回数が上限に達したエントリは警告ログを残して破棄する。
func (w *Worker) processEntry(ctx context.Context, entry *repository.RoleSyncEntry) {
	err := w.pusher.PushRole(ctx, entry.UserID, entry.Role)
	if err == nil {
		if err := w.outbox.Delete(ctx, entry.ID); err != nil {
			w.logger.Error("同期済みエントリの削除に失敗しました",
				slog.String("entry_id", entry.ID),
				slog.String("error", err.Error()),
			)
		}
		w.logger.Info("ロールをIdPへ再同期しました",
			slog.String("user_id", entry.UserID),
			slog.String("role", string(entry.Role)),
			slog.Int("attempts", entry.Attempts+1),
		)
		return
	}

	w.metrics.RecordRoleSyncFailure()

	attempts := entry.Attempts + 1
	if attempts >= maxAttempts {
		w.logger.Warn("ロール同期の試行回数が上限に達したためエントリを破棄します",
			slog.String("user_id", entry.UserID),
			slog.String("role", string(entry.Role)),
			slog.Int("attempts", attempts),
			slog.String("last_error", err.Error()),
		)
		if delErr := w.outbox.Delete(ctx, entry.ID); delErr != nil {
			w.logger.Error("破棄対象エントリの削除に失敗しました",
				slog.String("entry_id", entry.ID),
				slog.String("error", delErr.Error()),
			)
		}
		return
	}

	nextAttempt := time.Now().Add(CalculateBackoff(entry.Attempts))
	if markErr := w.outbox.MarkFailed(ctx, entry.ID, nextAttempt, err.Error()); markErr != nil {
		w.logger.Error("エントリの失敗記録に失敗しました",
			slog.String("entry_id", entry.ID),
			slog.String("error", markErr.Error()),
		)
		return
	}

	w.logger.Warn("ロール同期に失敗しました。バックオフ後に再試行します",
		slog.String("user_id", entry.UserID),
		slog.Int("attempts", attempts),
		slog.Time("next_attempt_at", nextAttempt),
		slog.String("error", err.Error()),
	)
}
