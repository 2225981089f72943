package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/hitoshi/bazaar/internal/model"
)

// UserFinder はロール判定に必要なユーザー検索のインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// NewRoleGateMiddleware は許可ロールのいずれかを持つユーザーのみ通す
// ミドルウェアを返す。ロールはリクエストごとにDBから読み直す。
// トークンやキャッシュに載ったロールは信用しない（降格の即時反映のため）。
// SessionMiddlewareの後に配置する。
func NewRoleGateMiddleware(users UserFinder, allowed ...model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteUnauthorized(w)
				return
			}

			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				slog.Error("ロール判定のユーザー検索に失敗しました",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if user == nil {
				// IdP側に存在してもローカル同期前のユーザーは認可しない
				WriteUnauthorized(w)
				return
			}

			if !slices.Contains(allowed, user.Role) {
				slog.Warn("権限不足のアクセスを拒否しました",
					slog.String("user_id", userID),
					slog.String("role", string(user.Role)),
					slog.String("path", r.URL.Path),
				)
				WriteForbidden(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
