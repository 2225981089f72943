package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"
)

const testSecret = "whsec_dGVzdC1zaWduaW5nLWtleQ==" // base64("test-signing-key")

func signPayload(t *testing.T, secret, msgID, timestamp string, payload []byte) string {
	t.Helper()
	key, err := base64.StdEncoding.DecodeString(secret[len("whsec_"):])
	if err != nil {
		t.Fatalf("failed to decode test secret: %v", err)
	}
	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signedHeaders(t *testing.T, secret string, at time.Time, payload []byte) http.Header {
	t.Helper()
	msgID := "msg_test_1"
	timestamp := strconv.FormatInt(at.Unix(), 10)
	h := http.Header{}
	h.Set("webhook-id", msgID)
	h.Set("webhook-timestamp", timestamp)
	h.Set("webhook-signature", "v1,"+signPayload(t, secret, msgID, timestamp, payload))
	return h
}

// 正しい署名が受理されることを検証
func TestWebhookVerifier_Verify_ValidSignature(t *testing.T) {
	v, err := NewWebhookVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewWebhookVerifier() error = %v", err)
	}

	payload := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)
	headers := signedHeaders(t, testSecret, time.Now(), payload)

	if err := v.Verify(headers, payload); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}
}

// 別の鍵で署名されたリクエストが拒否されることを検証
func TestWebhookVerifier_Verify_WrongKey(t *testing.T) {
	v, err := NewWebhookVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewWebhookVerifier() error = %v", err)
	}

	payload := []byte(`{"type":"user.created"}`)
	otherSecret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("other-key"))
	headers := signedHeaders(t, otherSecret, time.Now(), payload)

	if err := v.Verify(headers, payload); err == nil {
		t.Error("Verify() = nil, want signature error")
	}
}

// ペイロード改ざんが拒否されることを検証
func TestWebhookVerifier_Verify_TamperedPayload(t *testing.T) {
	v, _ := NewWebhookVerifier(testSecret)

	payload := []byte(`{"type":"user.created"}`)
	headers := signedHeaders(t, testSecret, time.Now(), payload)

	tampered := []byte(`{"type":"user.deleted"}`)
	if err := v.Verify(headers, tampered); err == nil {
		t.Error("Verify() = nil, want signature error for tampered payload")
	}
}

// 許容範囲外のタイムスタンプが拒否されることを検証
func TestWebhookVerifier_Verify_StaleTimestamp(t *testing.T) {
	v, _ := NewWebhookVerifier(testSecret)

	payload := []byte(`{"type":"user.created"}`)
	headers := signedHeaders(t, testSecret, time.Now().Add(-10*time.Minute), payload)

	if err := v.Verify(headers, payload); err == nil {
		t.Error("Verify() = nil, want timestamp tolerance error")
	}
}

// 署名ヘッダ欠落が拒否されることを検証
func TestWebhookVerifier_Verify_MissingHeaders(t *testing.T) {
	v, _ := NewWebhookVerifier(testSecret)

	payload := []byte(`{"type":"user.created"}`)
	headers := http.Header{}
	headers.Set("webhook-id", "msg_test_1")

	if err := v.Verify(headers, payload); err == nil {
		t.Error("Verify() = nil, want missing headers error")
	}
}

// 複数署名のうち1つでも一致すれば受理されることを検証（キーローテーション）
func TestWebhookVerifier_Verify_MultipleSignatures(t *testing.T) {
	v, _ := NewWebhookVerifier(testSecret)

	payload := []byte(`{"type":"user.updated"}`)
	headers := signedHeaders(t, testSecret, time.Now(), payload)
	valid := headers.Get("webhook-signature")
	headers.Set("webhook-signature", "v1,aW52YWxpZA== "+valid)

	if err := v.Verify(headers, payload); err != nil {
		t.Errorf("Verify() error = %v, want nil for rotated keys", err)
	}
}

// 不正なbase64シークレットでコンストラクタが失敗することを検証
func TestNewWebhookVerifier_InvalidSecret(t *testing.T) {
	if _, err := NewWebhookVerifier("whsec_%%%not-base64%%%"); err == nil {
		t.Error("NewWebhookVerifier() = nil, want decode error")
	}
}
