package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bazaar/internal/middleware"
	"github.com/hitoshi/bazaar/internal/model"
)

// CartManager はカート操作のインターフェース。
type CartManager interface {
	GetOrCreate(ctx context.Context, userID string) (*model.Cart, error)
	AddItem(ctx context.Context, userID, variantID string, quantity int) (*model.Cart, error)
	UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*model.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID string) (*model.Cart, error)
}

// CartHandler はカートのHTTPハンドラー。
type CartHandler struct {
	carts CartManager
}

// NewCartHandler はCartHandlerを生成する。
func NewCartHandler(carts CartManager) *CartHandler {
	return &CartHandler{carts: carts}
}

type cartItemResponse struct {
	ID         string `json:"id"`
	VariantID  string `json:"variant_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

type cartResponse struct {
	ID         string             `json:"id"`
	Items      []cartItemResponse `json:"items"`
	TotalCents int64              `json:"total_cents"`
}

func toCartResponse(cart *model.Cart) cartResponse {
	items := make([]cartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemResponse{
			ID:         item.ID,
			VariantID:  item.VariantID,
			Name:       item.Name,
			PriceCents: item.PriceCents,
			Quantity:   item.Quantity,
		})
	}
	return cartResponse{
		ID:         cart.ID,
		Items:      items,
		TotalCents: cart.TotalCents(),
	}
}

// Get は認証ユーザーのカートを返す（存在しなければ作成する）。
// GET /api/cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	cart, err := h.carts.GetOrCreate(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

type addCartItemRequest struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// AddItem はカートに商品バリアントを追加する。
// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequestBody(w)
		return
	}

	cart, err := h.carts.AddItem(r.Context(), userID, req.VariantID, req.Quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateItem はカート明細の数量を変更する。
// PUT /api/cart/items/{itemID}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequestBody(w)
		return
	}

	itemID := chi.URLParam(r, "itemID")
	cart, err := h.carts.UpdateQuantity(r.Context(), userID, itemID, req.Quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

// RemoveItem はカートから明細を削除する。
// DELETE /api/cart/items/{itemID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	itemID := chi.URLParam(r, "itemID")
	cart, err := h.carts.RemoveItem(r.Context(), userID, itemID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(cart))
}
