package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Identity Provider
	IdPAPIURL        string
	IdPSecretKey     string
	IdPWebhookSecret string
	SessionJWTSecret string

	// Payment Gateway
	PaymentAPIURL        string
	PaymentSecretKey     string
	PaymentWebhookSecret string
	CheckoutSuccessURL   string
	CheckoutCancelURL    string
	Currency             string

	// Admin
	SyncSecret string

	// Cache
	RedisURL string
	CacheTTL time.Duration

	// Seller Verification
	SellerTokenTTL    time.Duration
	SellerRedirectURL string

	// SMTP
	SMTPHost string
	SMTPPort string
	SMTPFrom string

	// Rate Limit
	RateLimitGeneral  int
	RateLimitCheckout int

	// Role Sync Worker
	SyncPollInterval time.Duration

	// Server
	ServerPort string
	BaseURL    string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.IdPSecretKey = os.Getenv("IDP_SECRET_KEY")
	if cfg.IdPSecretKey == "" {
		missing = append(missing, "IDP_SECRET_KEY")
	}

	cfg.IdPWebhookSecret = os.Getenv("IDP_WEBHOOK_SECRET")
	if cfg.IdPWebhookSecret == "" {
		missing = append(missing, "IDP_WEBHOOK_SECRET")
	}

	cfg.SessionJWTSecret = os.Getenv("SESSION_JWT_SECRET")
	if cfg.SessionJWTSecret == "" {
		missing = append(missing, "SESSION_JWT_SECRET")
	}

	cfg.PaymentSecretKey = os.Getenv("PAYMENT_SECRET_KEY")
	if cfg.PaymentSecretKey == "" {
		missing = append(missing, "PAYMENT_SECRET_KEY")
	}

	cfg.PaymentWebhookSecret = os.Getenv("PAYMENT_WEBHOOK_SECRET")
	if cfg.PaymentWebhookSecret == "" {
		missing = append(missing, "PAYMENT_WEBHOOK_SECRET")
	}

	cfg.SyncSecret = os.Getenv("SYNC_SECRET")
	if cfg.SyncSecret == "" {
		missing = append(missing, "SYNC_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.IdPAPIURL = getEnvString("IDP_API_URL", "")
	cfg.PaymentAPIURL = getEnvString("PAYMENT_API_URL", "")
	cfg.CheckoutSuccessURL = getEnvString("CHECKOUT_SUCCESS_URL", strings.TrimSuffix(cfg.BaseURL, "/")+"/checkout/success")
	cfg.CheckoutCancelURL = getEnvString("CHECKOUT_CANCEL_URL", strings.TrimSuffix(cfg.BaseURL, "/")+"/checkout/cancel")
	cfg.Currency = getEnvString("CURRENCY", "usd")
	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.CacheTTL = getEnvDuration("CACHE_TTL", 5*time.Minute)
	cfg.SellerTokenTTL = getEnvDuration("SELLER_TOKEN_TTL", 24*time.Hour)
	cfg.SMTPHost = getEnvString("SMTP_HOST", "")
	cfg.SMTPPort = getEnvString("SMTP_PORT", "25")
	cfg.SMTPFrom = getEnvString("SMTP_FROM", "noreply@bazaar.example.com")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitCheckout = getEnvInt("RATE_LIMIT_CHECKOUT", 10)
	cfg.SyncPollInterval = getEnvDuration("SYNC_POLL_INTERVAL", time.Minute)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	// 検証結果の通知先はフロントエンドのページ
	cfg.SellerRedirectURL = getEnvString("SELLER_REDIRECT_URL", strings.TrimSuffix(cfg.CORSAllowedOrigin, "/")+"/seller/verify-result")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
