package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/bazaar/internal/identity"
	"github.com/hitoshi/bazaar/internal/payment"
)

// --- モック定義 ---

type mockSignatureVerifier struct {
	err error
}

func (m *mockSignatureVerifier) Verify(headers http.Header, payload []byte) error {
	return m.err
}

type mockEventApplier struct {
	applied []*identity.Event
	err     error
}

func (m *mockEventApplier) ApplyEvent(ctx context.Context, evt *identity.Event) error {
	m.applied = append(m.applied, evt)
	return m.err
}

type mockPaymentVerifier struct {
	err error
}

func (m *mockPaymentVerifier) Verify(sigHeader string, payload []byte) error {
	return m.err
}

type mockReconciler struct {
	sessions []*payment.CompletedSession
	err      error
}

func (m *mockReconciler) ReconcilePayment(ctx context.Context, session *payment.CompletedSession) error {
	m.sessions = append(m.sessions, session)
	return m.err
}

func newWebhookHandler(
	idpVerifier IdentityWebhookVerifier,
	applier IdentityEventApplier,
	payVerifier PaymentWebhookVerifier,
	reconciler PaymentReconciler,
	collector *mockCollector,
) *WebhookHandler {
	return NewWebhookHandler(idpVerifier, applier, payVerifier, reconciler, collector, testLogger())
}

// --- POST /api/webhooks/identity テスト ---

func TestWebhookHandler_HandleIdentity_Success(t *testing.T) {
	applier := &mockEventApplier{}
	collector := &mockCollector{}
	h := newWebhookHandler(&mockSignatureVerifier{}, applier, &mockPaymentVerifier{}, &mockReconciler{}, collector)

	body := []byte(`{"type":"user.created","data":{"id":"user-1","email":"taro@example.com"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/identity", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleIdentity(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if len(applier.applied) != 1 || applier.applied[0].Type != "user.created" {
		t.Errorf("expected user.created event applied, got %+v", applier.applied)
	}
	if len(collector.webhookEvents) != 1 || collector.webhookEvents[0] != "user.created" {
		t.Errorf("expected webhook event metric recorded, got %v", collector.webhookEvents)
	}
}

func TestWebhookHandler_HandleIdentity_InvalidSignature(t *testing.T) {
	applier := &mockEventApplier{}
	collector := &mockCollector{}
	h := newWebhookHandler(
		&mockSignatureVerifier{err: errors.New("signature mismatch")},
		applier, &mockPaymentVerifier{}, &mockReconciler{}, collector,
	)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/identity", bytes.NewReader([]byte(`{"type":"user.created"}`)))
	w := httptest.NewRecorder()

	h.HandleIdentity(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
	if len(applier.applied) != 0 {
		t.Error("expected no event applied on invalid signature")
	}
	if collector.webhookRejected != 1 {
		t.Errorf("expected 1 rejected metric, got %d", collector.webhookRejected)
	}
}

func TestWebhookHandler_HandleIdentity_MalformedPayload(t *testing.T) {
	h := newWebhookHandler(&mockSignatureVerifier{}, &mockEventApplier{}, &mockPaymentVerifier{}, &mockReconciler{}, &mockCollector{})

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/identity", bytes.NewReader([]byte(`{"data":{}}`)))
	w := httptest.NewRecorder()

	h.HandleIdentity(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestWebhookHandler_HandleIdentity_ApplyFailure(t *testing.T) {
	applier := &mockEventApplier{err: errors.New("db down")}
	h := newWebhookHandler(&mockSignatureVerifier{}, applier, &mockPaymentVerifier{}, &mockReconciler{}, &mockCollector{})

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/identity", bytes.NewReader([]byte(`{"type":"user.updated","data":{}}`)))
	w := httptest.NewRecorder()

	h.HandleIdentity(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}

// --- POST /api/webhooks/payment テスト ---

const completedEventJSON = `{
	"id": "evt_1",
	"type": "checkout.session.completed",
	"data": {
		"object": {
			"id": "cs_test_1",
			"payment_intent": "pi_1",
			"amount_total": 10200,
			"currency": "usd",
			"payment_status": "paid",
			"metadata": {"cart_id": "cart-1", "user_id": "user-1"}
		}
	}
}`

func TestWebhookHandler_HandlePayment_Completed(t *testing.T) {
	reconciler := &mockReconciler{}
	collector := &mockCollector{}
	h := newWebhookHandler(&mockSignatureVerifier{}, &mockEventApplier{}, &mockPaymentVerifier{}, reconciler, collector)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", bytes.NewReader([]byte(completedEventJSON)))
	req.Header.Set("Stripe-Signature", "t=1,v1=dummy")
	w := httptest.NewRecorder()

	h.HandlePayment(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if len(reconciler.sessions) != 1 {
		t.Fatalf("expected 1 reconciled session, got %d", len(reconciler.sessions))
	}
	session := reconciler.sessions[0]
	if session.ID != "cs_test_1" || session.Metadata.CartID != "cart-1" {
		t.Errorf("unexpected session: %+v", session)
	}
	if collector.reconciled != 1 {
		t.Errorf("expected 1 reconciled metric, got %d", collector.reconciled)
	}
}

func TestWebhookHandler_HandlePayment_IgnoresOtherEvents(t *testing.T) {
	reconciler := &mockReconciler{}
	h := newWebhookHandler(&mockSignatureVerifier{}, &mockEventApplier{}, &mockPaymentVerifier{}, reconciler, &mockCollector{})

	body := []byte(`{"id":"evt_2","type":"payment_intent.created","data":{"object":{}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.HandlePayment(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if len(reconciler.sessions) != 0 {
		t.Error("expected no reconciliation for unrelated event type")
	}
}

func TestWebhookHandler_HandlePayment_InvalidSignature(t *testing.T) {
	reconciler := &mockReconciler{}
	collector := &mockCollector{}
	h := newWebhookHandler(
		&mockSignatureVerifier{}, &mockEventApplier{},
		&mockPaymentVerifier{err: errors.New("signature mismatch")},
		reconciler, collector,
	)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", bytes.NewReader([]byte(completedEventJSON)))
	w := httptest.NewRecorder()

	h.HandlePayment(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
	if len(reconciler.sessions) != 0 {
		t.Error("expected no reconciliation on invalid signature")
	}
	if collector.webhookRejected != 1 {
		t.Errorf("expected 1 rejected metric, got %d", collector.webhookRejected)
	}
}

func TestWebhookHandler_HandlePayment_ReconcileFailure(t *testing.T) {
	reconciler := &mockReconciler{err: errors.New("db down")}
	collector := &mockCollector{}
	h := newWebhookHandler(&mockSignatureVerifier{}, &mockEventApplier{}, &mockPaymentVerifier{}, reconciler, collector)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", bytes.NewReader([]byte(completedEventJSON)))
	w := httptest.NewRecorder()

	h.HandlePayment(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
	if collector.reconciled != 0 {
		t.Error("expected no reconciled metric on failure")
	}
}
