package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bazaar/internal/middleware"
	"github.com/hitoshi/bazaar/internal/model"
)

// HealthChecker はDB疎通確認のインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	RoleFinder        middleware.UserFinder
	CORSAllowedOrigin string
	SessionJWTSecret  string
	SyncSecret        string
	RateLimiter       *middleware.RateLimiter
	Metrics           middleware.HTTPMetrics
	MetricsHandler    http.Handler
	Logger            *slog.Logger

	// Webhook
	IdentityVerifier IdentityWebhookVerifier
	IdentityApplier  IdentityEventApplier
	PaymentVerifier  PaymentWebhookVerifier
	Reconciler       PaymentReconciler
	WebhookMetrics   WebhookMetrics

	// 出品者申請
	SellerService     SellerService
	SellerMetrics     SellerMetrics
	SellerRedirectURL string

	// カタログ
	CategoryService    CategoryManager
	SubCategoryService SubCategoryManager
	StoreService       StoreManager
	ProductService     ProductManager
	SizeService        SizeManager
	CountryService     CountryManager
	CouponService      CouponManager

	// カート・チェックアウト
	CartService     CartManager
	CheckoutService CheckoutService
	CheckoutMetrics CheckoutMetrics

	// 管理
	AdminService RoleAdministrator
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics
//
// 公開読み取り・Webhook・検証リダイレクトは認証の外、カートと変更系は
// Session配下、カタログ変更系はさらにロールゲート配下に置く。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	webhookHandler := NewWebhookHandler(
		deps.IdentityVerifier, deps.IdentityApplier,
		deps.PaymentVerifier, deps.Reconciler,
		deps.WebhookMetrics, deps.Logger,
	)
	sellerHandler := NewSellerHandler(deps.SellerService, deps.SellerMetrics, deps.SellerRedirectURL, deps.Logger)
	categoryHandler := NewCategoryHandler(deps.CategoryService, deps.SubCategoryService)
	storeHandler := NewStoreHandler(deps.StoreService)
	productHandler := NewProductHandler(deps.ProductService)
	miscHandler := NewMiscHandler(deps.SizeService, deps.CountryService, deps.CouponService)
	cartHandler := NewCartHandler(deps.CartService)
	checkoutHandler := NewCheckoutHandler(deps.CheckoutService, deps.CheckoutMetrics)
	adminHandler := NewAdminHandler(deps.AdminService)

	// --- 運用エンドポイント ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.HealthChecker.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証不要のルート ---

	// Webhook（署名検証がそれ自体の認証となる）
	r.Post("/api/webhooks/identity", webhookHandler.HandleIdentity)
	r.Post("/api/webhooks/payment", webhookHandler.HandlePayment)

	// 出品者検証（メールのリンクから直接開かれるため認証の外）
	r.Get("/api/seller-request/verify", sellerHandler.Verify)

	// カタログの公開読み取り
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", categoryHandler.List)
		r.Get("/home", categoryHandler.Home)
		r.Get("/{categoryID}", categoryHandler.Get)
		r.Get("/{categoryID}/subcategories", categoryHandler.ListSubCategories)
	})
	r.Get("/api/subcategories/{subCategoryID}", categoryHandler.GetSubCategory)
	r.Route("/api/stores", func(r chi.Router) {
		r.Get("/", storeHandler.List)
		r.Get("/{storeID}", storeHandler.Get)
		r.Get("/{storeID}/products", productHandler.ListByStore)
		r.Get("/{storeID}/coupons", miscHandler.ListCoupons)
	})
	r.Get("/api/products/{productID}", productHandler.Get)
	r.Get("/api/products/slug/{slug}", productHandler.GetBySlug)
	r.Get("/api/variants/{variantID}/sizes", miscHandler.ListSizes)
	r.Get("/api/countries", miscHandler.ListCountries)
	r.Get("/api/coupons/{code}", miscHandler.GetCoupon)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionJWTSecret))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// カート
		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", cartHandler.Get)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{itemID}", cartHandler.UpdateItem)
			r.Delete("/items/{itemID}", cartHandler.RemoveItem)
		})

		// チェックアウト（専用レート制限を追加）
		r.With(deps.RateLimiter.CheckoutMiddleware()).Post("/api/checkout", checkoutHandler.Create)

		// 出品者申請
		r.Post("/api/seller-request", sellerHandler.Request)

		// ストア変更系（SELLERまたはADMIN）
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRoleGateMiddleware(deps.RoleFinder, model.RoleSeller, model.RoleAdmin))

			r.Get("/api/stores/mine", storeHandler.GetMine)
			r.Post("/api/stores", storeHandler.Upsert)
			r.Delete("/api/stores/{storeID}", storeHandler.Delete)

			r.Post("/api/products", productHandler.Upsert)
			r.Delete("/api/products/{productID}", productHandler.Delete)

			r.Post("/api/coupons", miscHandler.UpsertCoupon)
			r.Delete("/api/stores/{storeID}/coupons/{couponID}", miscHandler.DeleteCoupon)
		})

		// マスタ管理（ADMINのみ）
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRoleGateMiddleware(deps.RoleFinder, model.RoleAdmin))

			r.Post("/api/categories", categoryHandler.Upsert)
			r.Delete("/api/categories/{categoryID}", categoryHandler.Delete)
			r.Post("/api/subcategories", categoryHandler.UpsertSubCategory)
			r.Delete("/api/subcategories/{subCategoryID}", categoryHandler.DeleteSubCategory)

			r.Post("/api/sizes", miscHandler.UpsertSize)
			r.Delete("/api/sizes/{sizeID}", miscHandler.DeleteSize)
			r.Post("/api/countries", miscHandler.UpsertCountry)
			r.Delete("/api/countries/{countryID}", miscHandler.DeleteCountry)
		})
	})

	// --- 共有シークレットで保護される管理ルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSyncSecretMiddleware(deps.SyncSecret))

		r.Post("/api/admin/set-role", adminHandler.SetRole)
		r.Post("/api/admin/sync-role", adminHandler.SyncRole)
	})

	return r
}
