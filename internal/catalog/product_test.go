package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/bazaar/internal/model"
)

// upperSanitizer は通過した入力を大文字化するサニタイザ。呼び出し確認用。
type upperSanitizer struct{}

func (upperSanitizer) Sanitize(rawHTML string) string { return strings.ToUpper(rawHTML) }

func productTestStores(ownerID string) *mockStoreRepo {
	return &mockStoreRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Store, error) {
			return &model.Store{ID: id, UserID: ownerID}, nil
		},
	}
}

// スラグ未指定の新規作成で一意なスラグが採番されることを検証
func TestProductService_Upsert_GeneratesUniqueSlug(t *testing.T) {
	var saved *model.Product
	repo := &mockProductRepo{
		slugExistsFunc: func(ctx context.Context, slug, excludeID string) (bool, error) {
			return slug == "leather-wallet", nil // ベーススラグは使用済み
		},
		upsertFunc: func(ctx context.Context, p *model.Product) error {
			saved = p
			return nil
		},
	}
	svc := NewProductService(repo, productTestStores("seller-1"), storeTestUsers(model.RoleSeller), noopSanitizer{}, testLogger())

	got, err := svc.Upsert(context.Background(), "seller-1", ProductInput{
		StoreID: "store-1",
		Name:    "Leather Wallet",
		Variants: []VariantInput{
			{Name: "Brown", SKU: "LW-BR", PriceCents: 4500, Quantity: 10},
		},
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if got.Slug != "leather-wallet-2" {
		t.Errorf("slug = %q, want leather-wallet-2", got.Slug)
	}
	if len(saved.Variants) != 1 || saved.Variants[0].ProductID != saved.ID {
		t.Errorf("variants = %+v, want 1 variant bound to product", saved.Variants)
	}
}

// 更新時にスラグ未指定なら既存スラグを維持することを検証
func TestProductService_Upsert_KeepsExistingSlug(t *testing.T) {
	var saved *model.Product
	repo := &mockProductRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Product, error) {
			return &model.Product{ID: id, StoreID: "store-1", Slug: "original-slug"}, nil
		},
		slugExistsFunc: func(ctx context.Context, slug, excludeID string) (bool, error) {
			t.Error("スラグ維持のパスで存在確認は不要")
			return false, nil
		},
		upsertFunc: func(ctx context.Context, p *model.Product) error {
			saved = p
			return nil
		},
	}
	svc := NewProductService(repo, productTestStores("seller-1"), storeTestUsers(model.RoleSeller), noopSanitizer{}, testLogger())

	_, err := svc.Upsert(context.Background(), "seller-1", ProductInput{
		ID:      "prod-1",
		StoreID: "store-1",
		Name:    "Renamed Wallet",
		Variants: []VariantInput{
			{SKU: "LW-1", PriceCents: 4500},
		},
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if saved.Slug != "original-slug" {
		t.Errorf("slug = %q, want original-slug", saved.Slug)
	}
}

// 使用済みスラグの明示指定が衝突エラーになることを検証
func TestProductService_Upsert_ExplicitSlugConflict(t *testing.T) {
	repo := &mockProductRepo{
		slugExistsFunc: func(ctx context.Context, slug, excludeID string) (bool, error) {
			return true, nil
		},
	}
	svc := NewProductService(repo, productTestStores("seller-1"), storeTestUsers(model.RoleSeller), noopSanitizer{}, testLogger())

	_, err := svc.Upsert(context.Background(), "seller-1", ProductInput{
		StoreID: "store-1",
		Name:    "Leather Wallet",
		Slug:    "taken-slug",
		Variants: []VariantInput{
			{SKU: "LW-1", PriceCents: 4500},
		},
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUniqueConflict {
		t.Errorf("Upsert() error = %v, want UNIQUE_CONFLICT", err)
	}
}

// 他人のストアへの商品登録が拒否されることを検証
func TestProductService_Upsert_ForeignStoreForbidden(t *testing.T) {
	svc := NewProductService(&mockProductRepo{}, productTestStores("owner-1"), storeTestUsers(model.RoleSeller), noopSanitizer{}, testLogger())

	_, err := svc.Upsert(context.Background(), "intruder", ProductInput{
		StoreID: "store-1",
		Name:    "Leather Wallet",
		Variants: []VariantInput{
			{SKU: "LW-1", PriceCents: 4500},
		},
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("Upsert() error = %v, want FORBIDDEN", err)
	}
}

// バリアントなしの商品が拒否されることを検証
func TestProductService_Upsert_RequiresVariants(t *testing.T) {
	svc := NewProductService(&mockProductRepo{}, productTestStores("seller-1"), storeTestUsers(model.RoleSeller), noopSanitizer{}, testLogger())

	_, err := svc.Upsert(context.Background(), "seller-1", ProductInput{
		StoreID: "store-1",
		Name:    "Leather Wallet",
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("Upsert() error = %v, want INVALID_REQUEST", err)
	}
}

// 負の価格のバリアントが拒否されることを検証
func TestProductService_Upsert_NegativePrice(t *testing.T) {
	svc := NewProductService(&mockProductRepo{}, productTestStores("seller-1"), storeTestUsers(model.RoleSeller), noopSanitizer{}, testLogger())

	_, err := svc.Upsert(context.Background(), "seller-1", ProductInput{
		StoreID: "store-1",
		Name:    "Leather Wallet",
		Variants: []VariantInput{
			{SKU: "LW-1", PriceCents: -100},
		},
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("Upsert() error = %v, want INVALID_REQUEST", err)
	}
}

// 説明文がサニタイズされて保存されることを検証
func TestProductService_Upsert_SanitizesDescription(t *testing.T) {
	var saved *model.Product
	repo := &mockProductRepo{
		slugExistsFunc: func(ctx context.Context, slug, excludeID string) (bool, error) {
			return false, nil
		},
		upsertFunc: func(ctx context.Context, p *model.Product) error {
			saved = p
			return nil
		},
	}
	svc := NewProductService(repo, productTestStores("seller-1"), storeTestUsers(model.RoleSeller), upperSanitizer{}, testLogger())

	_, err := svc.Upsert(context.Background(), "seller-1", ProductInput{
		StoreID:     "store-1",
		Name:        "Leather Wallet",
		Description: "raw",
		Variants: []VariantInput{
			{SKU: "LW-1", PriceCents: 4500},
		},
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if saved.Description != "RAW" {
		t.Errorf("Description = %q, want sanitizer output", saved.Description)
	}
}

// 他人の商品の削除が拒否されることを検証
func TestProductService_Delete_ForeignForbidden(t *testing.T) {
	repo := &mockProductRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Product, error) {
			return &model.Product{ID: id, StoreID: "store-1"}, nil
		},
	}
	svc := NewProductService(repo, productTestStores("owner-1"), storeTestUsers(model.RoleSeller), noopSanitizer{}, testLogger())

	err := svc.Delete(context.Background(), "intruder", "prod-1")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("Delete() error = %v, want FORBIDDEN", err)
	}
}
