package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bazaar/internal/identity"
	"github.com/hitoshi/bazaar/internal/payment"
)

// maxWebhookBodySize はWebhookペイロードの最大サイズ（1MB）。
const maxWebhookBodySize = 1 << 20

// paymentSignatureHeader は決済ゲートウェイの署名ヘッダ名。
const paymentSignatureHeader = "Stripe-Signature"

// IdentityWebhookVerifier はIdP Webhookの署名検証インターフェース。
type IdentityWebhookVerifier interface {
	Verify(headers http.Header, payload []byte) error
}

// IdentityEventApplier はIdPイベントのローカル適用インターフェース。
type IdentityEventApplier interface {
	ApplyEvent(ctx context.Context, evt *identity.Event) error
}

// PaymentWebhookVerifier は決済Webhookの署名検証インターフェース。
type PaymentWebhookVerifier interface {
	Verify(sigHeader string, payload []byte) error
}

// PaymentReconciler は決済完了イベントの注文への反映インターフェース。
type PaymentReconciler interface {
	ReconcilePayment(ctx context.Context, session *payment.CompletedSession) error
}

// WebhookMetrics はWebhook処理のメトリクス記録インターフェース。
type WebhookMetrics interface {
	RecordWebhookEvent(eventType string)
	RecordWebhookRejected()
	RecordPaymentReconciled()
}

// WebhookHandler は外部システムからのWebhookを処理する。
type WebhookHandler struct {
	idpVerifier     IdentityWebhookVerifier
	idpApplier      IdentityEventApplier
	paymentVerifier PaymentWebhookVerifier
	reconciler      PaymentReconciler
	metrics         WebhookMetrics
	logger          *slog.Logger
}

// NewWebhookHandler はWebhookHandlerを生成する。
func NewWebhookHandler(
	idpVerifier IdentityWebhookVerifier,
	idpApplier IdentityEventApplier,
	paymentVerifier PaymentWebhookVerifier,
	reconciler PaymentReconciler,
	metrics WebhookMetrics,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		idpVerifier:     idpVerifier,
		idpApplier:      idpApplier,
		paymentVerifier: paymentVerifier,
		reconciler:      reconciler,
		metrics:         metrics,
		logger:          logger,
	}
}

// HandleIdentity はIdPからのユーザー同期イベントを処理する。
// POST /api/webhooks/identity
// 署名不正は401、処理失敗は500を返す（再送はIdP側の責務）。
func (h *WebhookHandler) HandleIdentity(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		writeBadRequestBody(w)
		return
	}

	if err := h.idpVerifier.Verify(r.Header, payload); err != nil {
		h.metrics.RecordWebhookRejected()
		h.logger.Warn("IdP Webhookの署名検証に失敗しました",
			slog.String("error", err.Error()),
		)
		writeUnauthorized(w)
		return
	}

	evt, err := identity.ParseEvent(payload)
	if err != nil {
		h.logger.Warn("IdP Webhookペイロードの解析に失敗しました",
			slog.String("error", err.Error()),
		)
		writeBadRequestBody(w)
		return
	}

	if err := h.idpApplier.ApplyEvent(r.Context(), evt); err != nil {
		h.logger.Error("IdPイベントの適用に失敗しました",
			slog.String("event_type", evt.Type),
			slog.String("error", err.Error()),
		)
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordWebhookEvent(evt.Type)
	w.WriteHeader(http.StatusOK)
}

// HandlePayment は決済ゲートウェイからのイベントを処理する。
// POST /api/webhooks/payment
// checkout.session.completed以外のイベントはログのみ残して200を返す。
func (h *WebhookHandler) HandlePayment(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		writeBadRequestBody(w)
		return
	}

	if err := h.paymentVerifier.Verify(r.Header.Get(paymentSignatureHeader), payload); err != nil {
		h.metrics.RecordWebhookRejected()
		h.logger.Warn("決済Webhookの署名検証に失敗しました",
			slog.String("error", err.Error()),
		)
		writeUnauthorized(w)
		return
	}

	ev, err := payment.ParseEvent(payload)
	if err != nil {
		h.logger.Warn("決済Webhookペイロードの解析に失敗しました",
			slog.String("error", err.Error()),
		)
		writeBadRequestBody(w)
		return
	}

	if ev.Type != payment.EventCheckoutCompleted {
		h.logger.Info("対象外の決済イベントをスキップしました", slog.String("event_type", ev.Type))
		w.WriteHeader(http.StatusOK)
		return
	}

	session, err := payment.ParseCompletedSession(ev)
	if err != nil {
		h.logger.Warn("決済完了イベントの解析に失敗しました",
			slog.String("event_id", ev.ID),
			slog.String("error", err.Error()),
		)
		writeBadRequestBody(w)
		return
	}

	if err := h.reconciler.ReconcilePayment(r.Context(), session); err != nil {
		h.logger.Error("決済の注文への反映に失敗しました",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordPaymentReconciled()
	w.WriteHeader(http.StatusOK)
}
