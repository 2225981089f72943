package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/bazaar/internal/middleware"
	"github.com/hitoshi/bazaar/internal/model"
	"github.com/hitoshi/bazaar/internal/payment"
)

// CheckoutService はチェックアウトセッション作成のインターフェース。
type CheckoutService interface {
	CreateSession(ctx context.Context, userID, cartID string) (*payment.Session, error)
}

// CheckoutMetrics はチェックアウトのメトリクス記録インターフェース。
type CheckoutMetrics interface {
	RecordCheckoutSession()
	RecordCheckoutFailure(reason string)
}

// CheckoutHandler はチェックアウトのHTTPハンドラー。
type CheckoutHandler struct {
	service CheckoutService
	metrics CheckoutMetrics
}

// NewCheckoutHandler はCheckoutHandlerを生成する。
func NewCheckoutHandler(service CheckoutService, metrics CheckoutMetrics) *CheckoutHandler {
	return &CheckoutHandler{service: service, metrics: metrics}
}

type checkoutRequest struct {
	CartID string `json:"cart_id"`
}

type checkoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// Create はカートから決済ゲートウェイのチェックアウトセッションを作成する。
// POST /api/checkout
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequestBody(w)
		return
	}

	session, err := h.service.CreateSession(r.Context(), userID, req.CartID)
	if err != nil {
		h.metrics.RecordCheckoutFailure(checkoutFailureReason(err))
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordCheckoutSession()
	writeJSON(w, http.StatusOK, checkoutResponse{
		SessionID: session.ID,
		URL:       session.URL,
	})
}

func checkoutFailureReason(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return "INTERNAL_ERROR"
}
