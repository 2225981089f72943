package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bazaar/internal/model"
)

// defaultAPIURL はIdP管理APIのデフォルトエンドポイント。
const defaultAPIURL = "https://api.clerk.com/v1"

// Client はIdP管理APIのクライアント。
// ローカルで権威を持つroleをユーザーのpublicメタデータとして逆同期する。
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

// PushRole は指定ユーザーのpublicメタデータにロールを書き込む。
// 失敗時はエラーを返す（呼び出し元がoutboxへの退避を判断する）。
func (c *Client) PushRole(ctx context.Context, userID string, role model.Role) error {
	body, err := json.Marshal(map[string]any{
		"public_metadata": map[string]any{
			"role": role,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode metadata payload: %w", err)
	}

	reqURL := fmt.Sprintf("%s/users/%s/metadata", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create metadata request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("IdPメタデータAPIの呼び出しに失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to call metadata API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("IdPメタデータAPIがエラーステータスを返しました",
			slog.String("user_id", userID),
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", string(detail)),
		)
		return fmt.Errorf("metadata API returned status %d", resp.StatusCode)
	}

	return nil
}
