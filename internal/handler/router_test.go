package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/bazaar/internal/middleware"
	"github.com/hitoshi/bazaar/internal/model"
)

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

type mockRoleFinder struct {
	user *model.User
}

func (m *mockRoleFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.user, nil
}

func newTestRouterDeps() *RouterDeps {
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	return &RouterDeps{
		HealthChecker:     &mockHealthChecker{},
		RoleFinder:        &mockRoleFinder{},
		CORSAllowedOrigin: "https://shop.example.com",
		SessionJWTSecret:  "test-jwt-secret",
		SyncSecret:        "test-sync-secret",
		RateLimiter:       rl,
		Logger:            testLogger(),

		IdentityVerifier: &mockSignatureVerifier{},
		IdentityApplier:  &mockEventApplier{},
		PaymentVerifier:  &mockPaymentVerifier{},
		Reconciler:       &mockReconciler{},
		WebhookMetrics:   &mockCollector{},

		SellerService:     &mockSellerService{},
		SellerMetrics:     &mockCollector{},
		SellerRedirectURL: sellerRedirectURL,

		CategoryService:    &mockCategoryManager{},
		SubCategoryService: &mockSubCategoryManager{},
		StoreService:       &mockStoreManager{},
		ProductService:     &mockProductManager{},
		SizeService:        &mockSizeManager{},
		CountryService:     &mockCountryManager{},
		CouponService:      &mockCouponManager{},

		CartService:     &mockCartManager{},
		CheckoutService: &mockCheckoutService{},
		CheckoutMetrics: &mockCollector{},

		AdminService: &mockRoleAdministrator{},
	}
}

func TestRouter_Health(t *testing.T) {
	deps := newTestRouterDeps()
	router := NewRouter(deps)
	defer deps.RateLimiter.Stop()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestRouter_Health_Unhealthy(t *testing.T) {
	deps := newTestRouterDeps()
	deps.HealthChecker = &mockHealthChecker{err: errors.New("connection refused")}
	router := NewRouter(deps)
	defer deps.RateLimiter.Stop()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestRouter_PublicCatalogReadsRequireNoSession(t *testing.T) {
	deps := newTestRouterDeps()
	router := NewRouter(deps)
	defer deps.RateLimiter.Stop()

	paths := []string{
		"/api/categories",
		"/api/categories/home",
		"/api/stores",
		"/api/countries",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("GET %s: expected status 200, got %d", path, w.Code)
		}
	}
}

func TestRouter_CartRequiresSession(t *testing.T) {
	deps := newTestRouterDeps()
	router := NewRouter(deps)
	defer deps.RateLimiter.Stop()

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

func TestRouter_AdminRequiresSyncSecret(t *testing.T) {
	deps := newTestRouterDeps()
	router := NewRouter(deps)
	defer deps.RateLimiter.Stop()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/set-role", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 without sync secret, got %d", w.Code)
	}
}

func TestRouter_WebhookRejectsBadSignature(t *testing.T) {
	deps := newTestRouterDeps()
	deps.IdentityVerifier = &mockSignatureVerifier{err: errors.New("signature mismatch")}
	router := NewRouter(deps)
	defer deps.RateLimiter.Stop()

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/identity", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

func TestRouter_SellerVerifyIsPublic(t *testing.T) {
	deps := newTestRouterDeps()
	router := NewRouter(deps)
	defer deps.RateLimiter.Stop()

	req := httptest.NewRequest(http.MethodGet, "/api/seller-request/verify?token=tok-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Errorf("expected status 303 redirect, got %d", w.Code)
	}
}
