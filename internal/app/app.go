package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/bazaar/internal/cache"
	"github.com/hitoshi/bazaar/internal/catalog"
	"github.com/hitoshi/bazaar/internal/checkout"
	"github.com/hitoshi/bazaar/internal/config"
	"github.com/hitoshi/bazaar/internal/database"
	"github.com/hitoshi/bazaar/internal/email"
	"github.com/hitoshi/bazaar/internal/handler"
	"github.com/hitoshi/bazaar/internal/identity"
	"github.com/hitoshi/bazaar/internal/logger"
	"github.com/hitoshi/bazaar/internal/metrics"
	"github.com/hitoshi/bazaar/internal/middleware"
	"github.com/hitoshi/bazaar/internal/payment"
	"github.com/hitoshi/bazaar/internal/repository"
	"github.com/hitoshi/bazaar/internal/security"
	"github.com/hitoshi/bazaar/internal/seller"
	"github.com/hitoshi/bazaar/internal/worker/cleanup"
	"github.com/hitoshi/bazaar/internal/worker/rolesync"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// newCatalogCache はRedisが設定されていればRedisキャッシュを、
// 未設定ならキャッシュなしのフォールバックを返す。
// キャッシュはUX最適化であり、接続失敗で起動を止めない。
func newCatalogCache(redisURL string) (catalog.Cache, func()) {
	if redisURL == "" {
		slog.Info("REDIS_URL is not set, catalog cache disabled")
		return cache.NoopCache{}, func() {}
	}

	rc, err := cache.NewRedisCache(redisURL)
	if err != nil {
		slog.Warn("failed to connect to redis, catalog cache disabled",
			slog.String("error", err.Error()),
		)
		return cache.NoopCache{}, func() {}
	}

	slog.Info("redis cache connected")
	return rc, func() { _ = rc.Close() }
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. キャッシュ
	catalogCache, closeCache := newCatalogCache(cfg.RedisURL)
	defer closeCache()

	// 3. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sellerReqRepo := repository.NewPostgresSellerRequestRepo(db)
	outboxRepo := repository.NewPostgresRoleSyncOutboxRepo(db)
	categoryRepo := repository.NewPostgresCategoryRepo(db)
	subCategoryRepo := repository.NewPostgresSubCategoryRepo(db)
	storeRepo := repository.NewPostgresStoreRepo(db)
	productRepo := repository.NewPostgresProductRepo(db)
	sizeRepo := repository.NewPostgresSizeRepo(db)
	countryRepo := repository.NewPostgresCountryRepo(db)
	couponRepo := repository.NewPostgresCouponRepo(db)
	cartRepo := repository.NewPostgresCartRepo(db)
	orderRepo := repository.NewPostgresOrderRepo(db)

	// 4. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. セキュリティサービスの初期化
	sanitizer := security.NewContentSanitizer()
	ssrfGuard := security.NewSSRFGuard()

	// 6. 外部クライアントの初期化
	httpClient := &http.Client{Timeout: 10 * time.Second}
	idpClient := identity.NewClient(httpClient, slog.Default(), cfg.IdPSecretKey, cfg.IdPAPIURL)
	idpVerifier, err := identity.NewWebhookVerifier(cfg.IdPWebhookSecret)
	if err != nil {
		return fmt.Errorf("failed to build webhook verifier: %w", err)
	}
	paymentClient := payment.NewClient(httpClient, slog.Default(), cfg.PaymentSecretKey, cfg.PaymentAPIURL)
	paymentVerifier := payment.NewWebhookVerifier(cfg.PaymentWebhookSecret)

	// 7. ドメインサービスの初期化
	identityService := identity.NewService(userRepo, outboxRepo, idpClient, slog.Default())

	emailSender := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, slog.Default())
	verifyURL := strings.TrimSuffix(cfg.BaseURL, "/") + "/api/seller-request/verify"
	sellerService := seller.NewService(
		sellerReqRepo, userRepo, identityService, emailSender,
		slog.Default(), cfg.SellerTokenTTL, verifyURL,
	)

	logoValidator := catalog.NewLogoValidator(ssrfGuard, slog.Default())
	categoryService := catalog.NewCategoryService(categoryRepo, catalogCache, cfg.CacheTTL, slog.Default())
	subCategoryService := catalog.NewSubCategoryService(subCategoryRepo, categoryRepo, catalogCache, slog.Default())
	storeService := catalog.NewStoreService(storeRepo, userRepo, sanitizer, logoValidator, slog.Default())
	productService := catalog.NewProductService(productRepo, storeRepo, userRepo, sanitizer, slog.Default())
	sizeService := catalog.NewSizeService(sizeRepo, slog.Default())
	countryService := catalog.NewCountryService(countryRepo, slog.Default())
	couponService := catalog.NewCouponService(couponRepo, storeRepo, userRepo, slog.Default())

	cartService := checkout.NewCartService(cartRepo, productRepo, slog.Default())
	checkoutService := checkout.NewService(
		cartRepo, orderRepo, paymentClient, slog.Default(),
		cfg.Currency, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL,
	)

	// 8. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigFromLimits(cfg.RateLimitGeneral, cfg.RateLimitCheckout),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		HealthChecker:     db,
		RoleFinder:        userRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		SessionJWTSecret:  cfg.SessionJWTSecret,
		SyncSecret:        cfg.SyncSecret,
		RateLimiter:       rateLimiter,
		Metrics:           collector,
		MetricsHandler:    metrics.SetupMetricsRoute(registry),
		Logger:            slog.Default(),

		IdentityVerifier: idpVerifier,
		IdentityApplier:  identityService,
		PaymentVerifier:  paymentVerifier,
		Reconciler:       checkoutService,
		WebhookMetrics:   collector,

		SellerService:     sellerService,
		SellerMetrics:     collector,
		SellerRedirectURL: cfg.SellerRedirectURL,

		CategoryService:    categoryService,
		SubCategoryService: subCategoryService,
		StoreService:       storeService,
		ProductService:     productService,
		SizeService:        sizeService,
		CountryService:     countryService,
		CouponService:      couponService,

		CartService:     cartService,
		CheckoutService: checkoutService,
		CheckoutMetrics: collector,

		AdminService: identityService,
	}

	router := handler.NewRouter(deps)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、ロール逆同期のoutboxを定期的に再送する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. 依存のワイヤリング
	outboxRepo := repository.NewPostgresRoleSyncOutboxRepo(db)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	idpClient := identity.NewClient(httpClient, slog.Default(), cfg.IdPSecretKey, cfg.IdPAPIURL)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	worker := rolesync.NewWorker(outboxRepo, idpClient, collector, slog.Default(), 0)

	// 3. 出品者申請の整理ジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("poll_interval", cfg.SyncPollInterval),
	)

	// 申請整理ジョブを日次でバックグラウンド実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// outbox再送ループをメインgoroutineで実行（ブロッキング）
	worker.Start(ctx, cfg.SyncPollInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
