package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bazaar/internal/catalog"
	"github.com/hitoshi/bazaar/internal/middleware"
	"github.com/hitoshi/bazaar/internal/model"
)

// SizeManager はサイズ展開操作のインターフェース。
type SizeManager interface {
	ListByVariant(ctx context.Context, variantID string) ([]*model.Size, error)
	Upsert(ctx context.Context, input catalog.SizeInput) (*model.Size, error)
	Delete(ctx context.Context, id string) error
}

// CountryManager は国マスタ操作のインターフェース。
type CountryManager interface {
	List(ctx context.Context) ([]*model.Country, error)
	Upsert(ctx context.Context, input catalog.CountryInput) (*model.Country, error)
	Delete(ctx context.Context, id string) error
}

// CouponManager はクーポン操作のインターフェース。
type CouponManager interface {
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	ListByStore(ctx context.Context, storeID string) ([]*model.Coupon, error)
	Upsert(ctx context.Context, callerID string, input catalog.CouponInput) (*model.Coupon, error)
	Delete(ctx context.Context, callerID, storeID, id string) error
}

// MiscHandler はサイズ・国・クーポンのHTTPハンドラー。
type MiscHandler struct {
	sizes     SizeManager
	countries CountryManager
	coupons   CouponManager
}

// NewMiscHandler はMiscHandlerを生成する。
func NewMiscHandler(sizes SizeManager, countries CountryManager, coupons CouponManager) *MiscHandler {
	return &MiscHandler{sizes: sizes, countries: countries, coupons: coupons}
}

type sizeResponse struct {
	ID         string `json:"id"`
	VariantID  string `json:"variant_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

func toSizeResponse(s *model.Size) sizeResponse {
	return sizeResponse{
		ID:         s.ID,
		VariantID:  s.VariantID,
		Name:       s.Name,
		PriceCents: s.PriceCents,
		Quantity:   s.Quantity,
	}
}

// ListSizes はバリアントのサイズ展開を返す。
// GET /api/variants/{variantID}/sizes
func (h *MiscHandler) ListSizes(w http.ResponseWriter, r *http.Request) {
	sizes, err := h.sizes.ListByVariant(r.Context(), chi.URLParam(r, "variantID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	body := make([]sizeResponse, 0, len(sizes))
	for _, s := range sizes {
		body = append(body, toSizeResponse(s))
	}
	writeJSON(w, http.StatusOK, body)
}

// UpsertSize はサイズを作成または更新する。
// POST /api/sizes
func (h *MiscHandler) UpsertSize(w http.ResponseWriter, r *http.Request) {
	var input catalog.SizeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeBadRequestBody(w)
		return
	}

	s, err := h.sizes.Upsert(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSizeResponse(s))
}

// DeleteSize はサイズを削除する。
// DELETE /api/sizes/{sizeID}
func (h *MiscHandler) DeleteSize(w http.ResponseWriter, r *http.Request) {
	if err := h.sizes.Delete(r.Context(), chi.URLParam(r, "sizeID")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type countryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// ListCountries は配送先の国マスタを返す。
// GET /api/countries
func (h *MiscHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.countries.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	body := make([]countryResponse, 0, len(countries))
	for _, c := range countries {
		body = append(body, countryResponse{ID: c.ID, Name: c.Name, Code: c.Code})
	}
	writeJSON(w, http.StatusOK, body)
}

// UpsertCountry は国を作成または更新する。
// POST /api/countries
func (h *MiscHandler) UpsertCountry(w http.ResponseWriter, r *http.Request) {
	var input catalog.CountryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeBadRequestBody(w)
		return
	}

	c, err := h.countries.Upsert(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countryResponse{ID: c.ID, Name: c.Name, Code: c.Code})
}

// DeleteCountry は国を削除する。
// DELETE /api/countries/{countryID}
func (h *MiscHandler) DeleteCountry(w http.ResponseWriter, r *http.Request) {
	if err := h.countries.Delete(r.Context(), chi.URLParam(r, "countryID")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type couponResponse struct {
	ID       string    `json:"id"`
	StoreID  string    `json:"store_id"`
	Code     string    `json:"code"`
	Discount int       `json:"discount"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

func toCouponResponse(c *model.Coupon) couponResponse {
	return couponResponse{
		ID:       c.ID,
		StoreID:  c.StoreID,
		Code:     c.Code,
		Discount: c.Discount,
		StartsAt: c.StartsAt,
		EndsAt:   c.EndsAt,
	}
}

// GetCoupon はクーポンコードでクーポンを返す。
// GET /api/coupons/{code}
func (h *MiscHandler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCouponResponse(c))
}

// ListCoupons はストアのクーポン一覧を返す。
// GET /api/stores/{storeID}/coupons
func (h *MiscHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.ListByStore(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	body := make([]couponResponse, 0, len(coupons))
	for _, c := range coupons {
		body = append(body, toCouponResponse(c))
	}
	writeJSON(w, http.StatusOK, body)
}

// UpsertCoupon はクーポンを作成または更新する。
// POST /api/coupons
func (h *MiscHandler) UpsertCoupon(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var input catalog.CouponInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeBadRequestBody(w)
		return
	}

	c, err := h.coupons.Upsert(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCouponResponse(c))
}

// DeleteCoupon はクーポンを削除する。
// DELETE /api/stores/{storeID}/coupons/{couponID}
func (h *MiscHandler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	storeID := chi.URLParam(r, "storeID")
	couponID := chi.URLParam(r, "couponID")
	if err := h.coupons.Delete(r.Context(), userID, storeID, couponID); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
