package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// signatureTolerance はWebhookタイムスタンプの許容ずれ。
// これを超えるイベントはリプレイとみなし拒否する。
const signatureTolerance = 5 * time.Minute

// WebhookVerifier は決済ゲートウェイWebhookの署名を検証する。
// 署名ヘッダは "t=<unix>,v1=<hex>[,v1=<hex>...]" 形式で、
// 署名対象は "<timestamp>.<payload>" のHMAC-SHA256（hexエンコード）。
type WebhookVerifier struct {
	key []byte
	now func() time.Time // テスト用に現在時刻を差し替え可能
}

// NewWebhookVerifier はWebhookVerifierを生成する。
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{
		key: []byte(secret),
		now: time.Now,
	}
}

// Verify は署名ヘッダとペイロードを検証する。
// 検証失敗時はエラーを返す（呼び出し元は401で応答する）。
func (v *WebhookVerifier) Verify(sigHeader string, payload []byte) error {
	if sigHeader == "" {
		return fmt.Errorf("missing payment signature header")
	}

	var timestamp string
	var candidates []string
	for _, part := range strings.Split(sigHeader, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			candidates = append(candidates, value)
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return fmt.Errorf("malformed payment signature header")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid payment signature timestamp: %w", err)
	}
	sent := time.Unix(ts, 0)
	now := v.now()
	if sent.Before(now.Add(-signatureTolerance)) || sent.After(now.Add(signatureTolerance)) {
		return fmt.Errorf("payment signature timestamp outside tolerance")
	}

	expected := v.sign(timestamp, payload)
	for _, sig := range candidates {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}

	return fmt.Errorf("no matching payment signature")
}

// sign は署名対象文字列のHMAC-SHA256をhexで返す。
func (v *WebhookVerifier) sign(timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, v.key)
	fmt.Fprintf(mac, "%s.", timestamp)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// EventCheckoutCompleted は決済完了イベントのタイプ。
const EventCheckoutCompleted = "checkout.session.completed"

// Event は決済ゲートウェイのWebhookイベント。
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CompletedSession は決済完了イベントに含まれるセッション情報。
type CompletedSession struct {
	ID              string `json:"id"`
	PaymentIntentID string `json:"payment_intent"`
	AmountTotal     int64  `json:"amount_total"`
	Currency        string `json:"currency"`
	PaymentStatus   string `json:"payment_status"`
	Metadata        struct {
		CartID string `json:"cart_id"`
		UserID string `json:"user_id"`
	} `json:"metadata"`
}

// ParseEvent はWebhookペイロードをEventにデコードする。
func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode payment event: %w", err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("payment event has no type")
	}
	return &ev, nil
}

// ParseCompletedSession は決済完了イベントのセッション情報をデコードする。
func ParseCompletedSession(ev *Event) (*CompletedSession, error) {
	var session CompletedSession
	if err := json.Unmarshal(ev.Data.Object, &session); err != nil {
		return nil, fmt.Errorf("failed to decode completed session: %w", err)
	}
	if session.ID == "" {
		return nil, fmt.Errorf("completed session has no id")
	}
	return &session, nil
}
