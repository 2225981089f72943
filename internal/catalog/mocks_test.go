package catalog

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/bazaar/internal/model"
	"github.com/hitoshi/bazaar/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memCache はテスト用のインメモリCache実装。
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
	deletes int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.sets++
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.deletes++
	return nil
}

// mockCategoryRepo はCategoryRepositoryのモック実装。
type mockCategoryRepo struct {
	findByIDFunc     func(ctx context.Context, id string) (*model.Category, error)
	listFunc         func(ctx context.Context) ([]*model.Category, error)
	listWithSubsFunc func(ctx context.Context) ([]*model.CategoryWithSubs, error)
	findConflictFunc func(ctx context.Context, excludeID, name, url string) (string, error)
	upsertFunc       func(ctx context.Context, c *model.Category) error
	deleteFunc       func(ctx context.Context, id string) (bool, error)
}

func (m *mockCategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	return m.findByIDFunc(ctx, id)
}
func (m *mockCategoryRepo) List(ctx context.Context) ([]*model.Category, error) {
	return m.listFunc(ctx)
}
func (m *mockCategoryRepo) ListWithSubCategories(ctx context.Context) ([]*model.CategoryWithSubs, error) {
	return m.listWithSubsFunc(ctx)
}
func (m *mockCategoryRepo) FindConflict(ctx context.Context, excludeID, name, url string) (string, error) {
	return m.findConflictFunc(ctx, excludeID, name, url)
}
func (m *mockCategoryRepo) Upsert(ctx context.Context, c *model.Category) error {
	return m.upsertFunc(ctx, c)
}
func (m *mockCategoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	return m.deleteFunc(ctx, id)
}

// mockStoreRepo はStoreRepositoryのモック実装。
type mockStoreRepo struct {
	findByIDFunc     func(ctx context.Context, id string) (*model.Store, error)
	findByUserIDFunc func(ctx context.Context, userID string) (*model.Store, error)
	listFunc         func(ctx context.Context) ([]*model.Store, error)
	findConflictFunc func(ctx context.Context, excludeID, name, url string) (string, error)
	upsertFunc       func(ctx context.Context, s *model.Store) error
	deleteFunc       func(ctx context.Context, id string) (bool, error)
}

func (m *mockStoreRepo) FindByID(ctx context.Context, id string) (*model.Store, error) {
	return m.findByIDFunc(ctx, id)
}
func (m *mockStoreRepo) FindByUserID(ctx context.Context, userID string) (*model.Store, error) {
	return m.findByUserIDFunc(ctx, userID)
}
func (m *mockStoreRepo) List(ctx context.Context) ([]*model.Store, error) {
	return m.listFunc(ctx)
}
func (m *mockStoreRepo) FindConflict(ctx context.Context, excludeID, name, url string) (string, error) {
	return m.findConflictFunc(ctx, excludeID, name, url)
}
func (m *mockStoreRepo) Upsert(ctx context.Context, s *model.Store) error {
	return m.upsertFunc(ctx, s)
}
func (m *mockStoreRepo) Delete(ctx context.Context, id string) (bool, error) {
	return m.deleteFunc(ctx, id)
}

// mockUserRepo はUserRepositoryのモック実装。
type mockUserRepo struct {
	findByIDFunc func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}
func (m *mockUserRepo) Upsert(ctx context.Context, user *model.User) error           { return nil }
func (m *mockUserRepo) UpdateRole(ctx context.Context, id string, r model.Role) error { return nil }
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error              { return nil }
func (m *mockUserRepo) ListAll(ctx context.Context) ([]*model.User, error)           { return nil, nil }

// mockProductRepo はProductRepositoryのモック実装。
type mockProductRepo struct {
	findByIDFunc    func(ctx context.Context, id string) (*model.Product, error)
	findBySlugFunc  func(ctx context.Context, slug string) (*model.Product, error)
	slugExistsFunc  func(ctx context.Context, slug, excludeID string) (bool, error)
	listByStoreFunc func(ctx context.Context, storeID string) ([]*model.Product, error)
	upsertFunc      func(ctx context.Context, p *model.Product) error
	deleteFunc      func(ctx context.Context, id string) (bool, error)
}

func (m *mockProductRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	return m.findByIDFunc(ctx, id)
}
func (m *mockProductRepo) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	return m.findBySlugFunc(ctx, slug)
}
func (m *mockProductRepo) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	return m.slugExistsFunc(ctx, slug, excludeID)
}
func (m *mockProductRepo) ListByStore(ctx context.Context, storeID string) ([]*model.Product, error) {
	return m.listByStoreFunc(ctx, storeID)
}
func (m *mockProductRepo) Upsert(ctx context.Context, p *model.Product) error {
	return m.upsertFunc(ctx, p)
}
func (m *mockProductRepo) Delete(ctx context.Context, id string) (bool, error) {
	return m.deleteFunc(ctx, id)
}

// mockSubCategoryRepo はSubCategoryRepositoryのモック実装。
type mockSubCategoryRepo struct {
	findByIDFunc     func(ctx context.Context, id string) (*model.SubCategory, error)
	listByCatFunc    func(ctx context.Context, categoryID string) ([]*model.SubCategory, error)
	findConflictFunc func(ctx context.Context, excludeID, name, url string) (string, error)
	upsertFunc       func(ctx context.Context, sc *model.SubCategory) error
	deleteFunc       func(ctx context.Context, id string) (bool, error)
}

func (m *mockSubCategoryRepo) FindByID(ctx context.Context, id string) (*model.SubCategory, error) {
	return m.findByIDFunc(ctx, id)
}
func (m *mockSubCategoryRepo) ListByCategory(ctx context.Context, categoryID string) ([]*model.SubCategory, error) {
	return m.listByCatFunc(ctx, categoryID)
}
func (m *mockSubCategoryRepo) FindConflict(ctx context.Context, excludeID, name, url string) (string, error) {
	return m.findConflictFunc(ctx, excludeID, name, url)
}
func (m *mockSubCategoryRepo) Upsert(ctx context.Context, sc *model.SubCategory) error {
	return m.upsertFunc(ctx, sc)
}
func (m *mockSubCategoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	return m.deleteFunc(ctx, id)
}

// mockSizeRepo はSizeRepositoryのモック実装。
type mockSizeRepo struct {
	listByVariantFunc func(ctx context.Context, variantID string) ([]*model.Size, error)
	upsertFunc        func(ctx context.Context, s *model.Size) error
	deleteFunc        func(ctx context.Context, id string) (bool, error)
}

func (m *mockSizeRepo) ListByVariant(ctx context.Context, variantID string) ([]*model.Size, error) {
	return m.listByVariantFunc(ctx, variantID)
}
func (m *mockSizeRepo) Upsert(ctx context.Context, s *model.Size) error { return m.upsertFunc(ctx, s) }
func (m *mockSizeRepo) Delete(ctx context.Context, id string) (bool, error) {
	return m.deleteFunc(ctx, id)
}

// mockCountryRepo はCountryRepositoryのモック実装。
type mockCountryRepo struct {
	listFunc         func(ctx context.Context) ([]*model.Country, error)
	findConflictFunc func(ctx context.Context, excludeID, name, code string) (string, error)
	upsertFunc       func(ctx context.Context, c *model.Country) error
	deleteFunc       func(ctx context.Context, id string) (bool, error)
}

func (m *mockCountryRepo) List(ctx context.Context) ([]*model.Country, error) {
	return m.listFunc(ctx)
}
func (m *mockCountryRepo) FindConflict(ctx context.Context, excludeID, name, code string) (string, error) {
	return m.findConflictFunc(ctx, excludeID, name, code)
}
func (m *mockCountryRepo) Upsert(ctx context.Context, c *model.Country) error {
	return m.upsertFunc(ctx, c)
}
func (m *mockCountryRepo) Delete(ctx context.Context, id string) (bool, error) {
	return m.deleteFunc(ctx, id)
}

// mockCouponRepo はCouponRepositoryのモック実装。
type mockCouponRepo struct {
	findByCodeFunc  func(ctx context.Context, code string) (*model.Coupon, error)
	listByStoreFunc func(ctx context.Context, storeID string) ([]*model.Coupon, error)
	upsertFunc      func(ctx context.Context, c *model.Coupon) error
	deleteFunc      func(ctx context.Context, id string) (bool, error)
}

func (m *mockCouponRepo) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	return m.findByCodeFunc(ctx, code)
}
func (m *mockCouponRepo) ListByStore(ctx context.Context, storeID string) ([]*model.Coupon, error) {
	return m.listByStoreFunc(ctx, storeID)
}
func (m *mockCouponRepo) Upsert(ctx context.Context, c *model.Coupon) error {
	return m.upsertFunc(ctx, c)
}
func (m *mockCouponRepo) Delete(ctx context.Context, id string) (bool, error) {
	return m.deleteFunc(ctx, id)
}

// noopSanitizer は入力をそのまま返すサニタイザ。内容検証が不要なテストで使う。
type noopSanitizer struct{}

func (noopSanitizer) Sanitize(rawHTML string) string { return rawHTML }

var _ repository.CategoryRepository = (*mockCategoryRepo)(nil)
var _ repository.SubCategoryRepository = (*mockSubCategoryRepo)(nil)
var _ repository.SizeRepository = (*mockSizeRepo)(nil)
var _ repository.CountryRepository = (*mockCountryRepo)(nil)
var _ repository.CouponRepository = (*mockCouponRepo)(nil)
var _ repository.StoreRepository = (*mockStoreRepo)(nil)
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.ProductRepository = (*mockProductRepo)(nil)
