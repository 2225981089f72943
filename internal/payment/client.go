// Package payment は決済ゲートウェイとの連携を提供する。
// ホスト型チェックアウトセッションの作成と、決済WebhookのHMAC検証を行う。
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// defaultAPIURL は決済ゲートウェイAPIのデフォルトエンドポイント。
const defaultAPIURL = "https://api.stripe.com/v1"

// LineItem はチェックアウトセッションの1明細。金額は最小通貨単位。
type LineItem struct {
	Name            string
	UnitAmountCents int64
	Quantity        int
}

// SessionParams はホスト型チェックアウトセッションの作成パラメータ。
// IdempotencyKeyが同じリクエストはゲートウェイ側で同一セッションに畳まれる。
type SessionParams struct {
	LineItems      []LineItem
	Currency       string
	SuccessURL     string
	CancelURL      string
	CartID         string
	UserID         string
	IdempotencyKey string
}

// Session はゲートウェイが発行したチェックアウトセッション。
// URLは購入者をリダイレクトするホスト型決済ページ。
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Client は決済ゲートウェイAPIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	secretKey  string
	baseURL    string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// apiURLが空の場合はデフォルトエンドポイントを使用する。
func NewClient(httpClient *http.Client, logger *slog.Logger, secretKey, apiURL string) *Client {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		secretKey:  secretKey,
		baseURL:    apiURL,
	}
}

// CreateCheckoutSession はホスト型チェックアウトセッションを作成する。
func (c *Client) CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("client_reference_id", params.CartID)
	form.Set("metadata[cart_id]", params.CartID)
	form.Set("metadata[user_id]", params.UserID)
	for i, item := range params.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[price_data][currency]", params.Currency)
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitAmountCents, 10))
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
	}

	reqURL := c.baseURL + "/checkout/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if params.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", params.IdempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("決済ゲートウェイAPIの呼び出しに失敗しました",
			slog.String("cart_id", params.CartID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to call checkout session API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("決済ゲートウェイAPIがエラーステータスを返しました",
			slog.String("cart_id", params.CartID),
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", string(detail)),
		)
		return nil, fmt.Errorf("checkout session API returned status %d", resp.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}
	if session.ID == "" || session.URL == "" {
		return nil, fmt.Errorf("checkout session response is missing id or url")
	}
	return &session, nil
}
