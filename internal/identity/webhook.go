// Package identity は外部IdPとの同期機能を提供する。
// IdP Webhookの署名検証・イベント適用と、ローカルroleのIdPメタデータへの
// 逆同期を含む。
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// secretPrefix はIdPが発行するWebhookシークレットのプレフィックス。
	secretPrefix = "whsec_"
	// timestampTolerance はWebhookタイムスタンプの許容ずれ。
	// これを超えるイベントはリプレイとみなし拒否する。
	timestampTolerance = 5 * time.Minute
)

// WebhookVerifier はIdP Webhookの署名を検証する。
// 署名対象は "id.timestamp.payload"、HMAC-SHA256をbase64エンコードした値が
// webhook-signatureヘッダに "v1,<sig>" 形式でスペース区切りで並ぶ。
type WebhookVerifier struct {
	key []byte
	now func() time.Time // テスト用に現在時刻を差し替え可能
}

// NewWebhookVerifier はWebhookVerifierを生成する。
// secretは "whsec_" プレフィックス付きのbase64キー。
func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	raw := strings.TrimPrefix(secret, secretPrefix)
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode webhook secret: %w", err)
	}
	return &WebhookVerifier{
		key: key,
		now: time.Now,
	}, nil
}

// Verify はWebhookリクエストの署名とタイムスタンプを検証する。
// 検証失敗時はエラーを返す（呼び出し元は401で応答する）。
func (v *WebhookVerifier) Verify(headers http.Header, payload []byte) error {
	msgID := headers.Get("webhook-id")
	timestamp := headers.Get("webhook-timestamp")
	signatures := headers.Get("webhook-signature")
	if msgID == "" || timestamp == "" || signatures == "" {
		return fmt.Errorf("missing webhook signature headers")
	}

	// タイムスタンプ検証
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid webhook timestamp: %w", err)
	}
	sent := time.Unix(ts, 0)
	now := v.now()
	if sent.Before(now.Add(-timestampTolerance)) || sent.After(now.Add(timestampTolerance)) {
		return fmt.Errorf("webhook timestamp outside tolerance")
	}

	expected := v.sign(msgID, timestamp, payload)

	// ヘッダには複数の署名がスペース区切りで並ぶ（キーローテーション対応）
	for _, part := range strings.Split(signatures, " ") {
		version, sig, found := strings.Cut(part, ",")
		if !found || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}

	return fmt.Errorf("no matching webhook signature")
}

// sign は署名対象文字列のHMAC-SHA256をbase64で返す。
func (v *WebhookVerifier) sign(msgID, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, v.key)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
