package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/bazaar/internal/model"
	"github.com/hitoshi/bazaar/internal/seller"

	"github.com/hitoshi/bazaar/internal/middleware"
)

// SellerService は出品者申請フローのインターフェース。
type SellerService interface {
	Request(ctx context.Context, userID string) (*model.SellerRequest, error)
	Verify(ctx context.Context, token string) seller.VerifyResult
}

// SellerMetrics は出品者検証のメトリクス記録インターフェース。
type SellerMetrics interface {
	RecordSellerVerification(outcome string)
}

// SellerHandler は出品者申請・検証のHTTPハンドラー。
type SellerHandler struct {
	service     SellerService
	metrics     SellerMetrics
	redirectURL string
	logger      *slog.Logger
}

// NewSellerHandler はSellerHandlerを生成する。
// redirectURLは検証結果を通知するフロントエンドページのURL。
func NewSellerHandler(service SellerService, metrics SellerMetrics, redirectURL string, logger *slog.Logger) *SellerHandler {
	return &SellerHandler{
		service:     service,
		metrics:     metrics,
		redirectURL: redirectURL,
		logger:      logger,
	}
}

type sellerRequestResponse struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
}

// Request は出品者申請を受け付ける。
// POST /api/seller-request
func (h *SellerHandler) Request(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	req, err := h.service.Request(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sellerRequestResponse{
		ID:             req.ID,
		Status:         string(req.Status),
		TokenExpiresAt: req.TokenExpiresAt,
	})
}

// Verify は検証トークンを消費してフロントエンドへリダイレクトする。
// GET /api/seller-request/verify?token=...
// 成功時は verified=true（IdP同期未完了なら sync=pending 付き）、
// 失敗時は error=<理由> をクエリに載せる。
func (h *SellerHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	result := h.service.Verify(r.Context(), token)
	h.metrics.RecordSellerVerification(string(result.Outcome))

	target, err := url.Parse(h.redirectURL)
	if err != nil {
		h.logger.Error("リダイレクトURLの解析に失敗しました",
			slog.String("url", h.redirectURL),
			slog.String("error", err.Error()),
		)
		writeInternalServerError(w)
		return
	}

	q := target.Query()
	if result.Outcome.Succeeded() {
		q.Set("verified", "true")
		if !result.RoleSynced {
			q.Set("sync", "pending")
		}
	} else {
		q.Set("error", string(result.Outcome))
	}
	target.RawQuery = q.Encode()

	http.Redirect(w, r, target.String(), http.StatusSeeOther)
}
