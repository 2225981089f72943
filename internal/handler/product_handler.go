package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bazaar/internal/catalog"
	"github.com/hitoshi/bazaar/internal/middleware"
	"github.com/hitoshi/bazaar/internal/model"
)

// ProductManager は商品操作のインターフェース。
type ProductManager interface {
	Get(ctx context.Context, id string) (*model.Product, error)
	GetBySlug(ctx context.Context, slug string) (*model.Product, error)
	ListByStore(ctx context.Context, storeID string) ([]*model.Product, error)
	Upsert(ctx context.Context, callerID string, input catalog.ProductInput) (*model.Product, error)
	Delete(ctx context.Context, callerID, id string) error
}

// ProductHandler は商品のHTTPハンドラー。
type ProductHandler struct {
	products ProductManager
}

// NewProductHandler はProductHandlerを生成する。
func NewProductHandler(products ProductManager) *ProductHandler {
	return &ProductHandler{products: products}
}

type variantResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SKU        string `json:"sku"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

type productResponse struct {
	ID            string            `json:"id"`
	StoreID       string            `json:"store_id"`
	CategoryID    string            `json:"category_id"`
	SubCategoryID string            `json:"subcategory_id"`
	Name          string            `json:"name"`
	Slug          string            `json:"slug"`
	Description   string            `json:"description"`
	Brand         string            `json:"brand"`
	Variants      []variantResponse `json:"variants"`
}

func toProductResponse(p *model.Product) productResponse {
	variants := make([]variantResponse, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, variantResponse{
			ID:         v.ID,
			Name:       v.Name,
			SKU:        v.SKU,
			PriceCents: v.PriceCents,
			Quantity:   v.Quantity,
		})
	}
	return productResponse{
		ID:            p.ID,
		StoreID:       p.StoreID,
		CategoryID:    p.CategoryID,
		SubCategoryID: p.SubCategoryID,
		Name:          p.Name,
		Slug:          p.Slug,
		Description:   p.Description,
		Brand:         p.Brand,
		Variants:      variants,
	}
}

// Get は指定IDの商品を返す。
// GET /api/products/{productID}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// GetBySlug はスラグで商品を返す。
// GET /api/products/slug/{slug}
func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// ListByStore はストアの商品一覧を返す。
// GET /api/stores/{storeID}/products
func (h *ProductHandler) ListByStore(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListByStore(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	body := make([]productResponse, 0, len(products))
	for _, p := range products {
		body = append(body, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, body)
}

// Upsert は商品を作成または更新する。
// POST /api/products
func (h *ProductHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var input catalog.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeBadRequestBody(w)
		return
	}

	p, err := h.products.Upsert(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// Delete は商品を削除する。
// DELETE /api/products/{productID}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.products.Delete(r.Context(), userID, chi.URLParam(r, "productID")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
