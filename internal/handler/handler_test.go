package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bazaar/internal/middleware"
)

// --- 共通テストヘルパー ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// mockCollector はメトリクス記録の呼び出しを数えるモック。
type mockCollector struct {
	webhookEvents     []string
	webhookRejected   int
	checkoutSessions  int
	checkoutFailures  []string
	reconciled        int
	verifications     []string
	httpStatuses      []int
	latencyObservings int
}

func (m *mockCollector) RecordWebhookEvent(eventType string) {
	m.webhookEvents = append(m.webhookEvents, eventType)
}

func (m *mockCollector) RecordWebhookRejected() { m.webhookRejected++ }

func (m *mockCollector) RecordCheckoutSession() { m.checkoutSessions++ }

func (m *mockCollector) RecordCheckoutFailure(reason string) {
	m.checkoutFailures = append(m.checkoutFailures, reason)
}

func (m *mockCollector) RecordPaymentReconciled() { m.reconciled++ }

func (m *mockCollector) RecordRoleSyncFailure() {}

func (m *mockCollector) RecordSellerVerification(outcome string) {
	m.verifications = append(m.verifications, outcome)
}

func (m *mockCollector) RecordHTTPStatus(statusCode int) {
	m.httpStatuses = append(m.httpStatuses, statusCode)
}

func (m *mockCollector) RecordRequestLatency(duration time.Duration) { m.latencyObservings++ }
