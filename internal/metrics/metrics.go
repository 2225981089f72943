// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordWebhookEvent(eventType string)
	RecordWebhookRejected()
	RecordCheckoutSession()
	RecordCheckoutFailure(reason string)
	RecordPaymentReconciled()
	RecordRoleSyncFailure()
	RecordSellerVerification(outcome string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	webhookEvents      *prometheus.CounterVec
	webhookRejected    prometheus.Counter
	checkoutSessions   prometheus.Counter
	checkoutFailures   *prometheus.CounterVec
	paymentsReconciled prometheus.Counter
	roleSyncFailures   prometheus.Counter
	sellerVerification *prometheus.CounterVec
	httpStatus         *prometheus.CounterVec
	requestLatency     prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bazaar_webhook_events_total",
			Help: "処理したIdP Webhookイベントのタイプ別合計数",
		}, []string{"event_type"}),
		webhookRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_webhook_rejected_total",
			Help: "署名検証で拒否したWebhookの合計数",
		}),
		checkoutSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_checkout_sessions_total",
			Help: "作成したチェックアウトセッションの合計数",
		}),
		checkoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bazaar_checkout_failures_total",
			Help: "チェックアウト失敗の原因別合計数",
		}, []string{"reason"}),
		paymentsReconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_payments_reconciled_total",
			Help: "注文に反映した決済完了イベントの合計数",
		}),
		roleSyncFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_role_sync_failures_total",
			Help: "IdPへのロール逆同期失敗の合計数",
		}),
		sellerVerification: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bazaar_seller_verifications_total",
			Help: "出店申請の検証結果別合計数",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bazaar_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bazaar_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.webhookEvents,
		c.webhookRejected,
		c.checkoutSessions,
		c.checkoutFailures,
		c.paymentsReconciled,
		c.roleSyncFailures,
		c.sellerVerification,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordWebhookEvent は処理したIdP Webhookイベントを記録する。
func (c *Collector) RecordWebhookEvent(eventType string) {
	c.webhookEvents.WithLabelValues(eventType).Inc()
}

// RecordWebhookRejected は署名検証での拒否を記録する。
func (c *Collector) RecordWebhookRejected() {
	c.webhookRejected.Inc()
}

// RecordCheckoutSession はチェックアウトセッションの作成を記録する。
func (c *Collector) RecordCheckoutSession() {
	c.checkoutSessions.Inc()
}

// RecordCheckoutFailure はチェックアウト失敗を原因別に記録する。
func (c *Collector) RecordCheckoutFailure(reason string) {
	c.checkoutFailures.WithLabelValues(reason).Inc()
}

// RecordPaymentReconciled は決済完了イベントの注文への反映を記録する。
func (c *Collector) RecordPaymentReconciled() {
	c.paymentsReconciled.Inc()
}

// RecordRoleSyncFailure はロール逆同期の失敗を記録する。
func (c *Collector) RecordRoleSyncFailure() {
	c.roleSyncFailures.Inc()
}

// RecordSellerVerification は出店申請の検証結果を記録する。
func (c *Collector) RecordSellerVerification(outcome string) {
	c.sellerVerification.WithLabelValues(outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
