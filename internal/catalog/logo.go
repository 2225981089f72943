package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/bazaar/internal/model"
	"github.com/hitoshi/bazaar/internal/security"
)

const (
	// logoFetchTimeout はロゴ取得のタイムアウト。
	logoFetchTimeout = 10 * time.Second
	// maxLogoSize はロゴ画像の最大サイズ（5MB）。
	maxLogoSize = 5 * 1024 * 1024
)

// LogoValidator は出店者が指定するロゴURLを検証する。
// URLの静的検証に加えて実際に取得し、画像であることを確認する。
// 取得はSSRF防止付きクライアントで行う（内部ネットワークへの到達を防ぐ）。
type LogoValidator struct {
	guard  security.SSRFGuardService
	client *http.Client
	logger *slog.Logger
}

// NewLogoValidator はLogoValidatorを生成する。
func NewLogoValidator(guard security.SSRFGuardService, logger *slog.Logger) *LogoValidator {
	return &LogoValidator{
		guard:  guard,
		client: guard.NewSafeClient(logoFetchTimeout, maxLogoSize),
		logger: logger,
	}
}

// Validate はロゴURLの安全性と画像としての妥当性を検証する。
// 安全でないURLにはAPIError(UNSAFE_URL)、取得失敗・非画像には
// APIError(INVALID_REQUEST)を返す。空URLはロゴ未設定として許可する。
func (v *LogoValidator) Validate(ctx context.Context, logoURL string) error {
	if logoURL == "" {
		return nil
	}

	if err := v.guard.ValidateURL(logoURL); err != nil {
		v.logger.Warn("安全でないロゴURLを拒否しました",
			slog.String("url", logoURL),
			slog.String("error", err.Error()),
		)
		return model.NewUnsafeURLError()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logoURL, nil)
	if err != nil {
		return model.NewInvalidRequestError("ロゴURLの形式が正しくありません。")
	}

	resp, err := v.client.Do(req)
	if err != nil {
		// safeurlのDialer検証（DNS再バインディング対策）もここで失敗する
		v.logger.Warn("ロゴの取得に失敗しました",
			slog.String("url", logoURL),
			slog.String("error", err.Error()),
		)
		return model.NewInvalidRequestError("ロゴ画像を取得できませんでした。")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.NewInvalidRequestError(
			fmt.Sprintf("ロゴURLがステータス %d を返しました。", resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return model.NewInvalidRequestError("ロゴURLは画像を指している必要があります。")
	}

	// サイズ上限までの読み捨てで過大レスポンスを検出する
	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxLogoSize+1))
	if err != nil {
		return model.NewInvalidRequestError("ロゴ画像の読み取りに失敗しました。")
	}
	if n > maxLogoSize {
		return model.NewInvalidRequestError("ロゴ画像が大きすぎます（上限5MB）。")
	}

	return nil
}
