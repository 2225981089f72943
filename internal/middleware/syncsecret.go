package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// syncSecretHeader はロール同期APIの共有シークレットを運ぶヘッダ名。
const syncSecretHeader = "X-Sync-Secret"

// NewSyncSecretMiddleware は共有シークレットヘッダで保護するミドルウェアを返す。
// 運用バッチやIdP側ジョブからのロール再同期呼び出しをセッションなしで許可する。
func NewSyncSecretMiddleware(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(syncSecretHeader)
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				slog.Warn("同期シークレットの検証に失敗しました",
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
				)
				WriteUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
