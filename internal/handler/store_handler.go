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

// StoreManager はストア操作のインターフェース。
type StoreManager interface {
	List(ctx context.Context) ([]*model.Store, error)
	Get(ctx context.Context, id string) (*model.Store, error)
	GetMine(ctx context.Context, callerID string) (*model.Store, error)
	Upsert(ctx context.Context, callerID string, input catalog.StoreInput) (*model.Store, error)
	Delete(ctx context.Context, callerID, id string) error
}

// StoreHandler はストアのHTTPハンドラー。
type StoreHandler struct {
	stores StoreManager
}

// NewStoreHandler はStoreHandlerを生成する。
func NewStoreHandler(stores StoreManager) *StoreHandler {
	return &StoreHandler{stores: stores}
}

type storeResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	LogoURL     string `json:"logo_url"`
	Status      string `json:"status"`
}

func toStoreResponse(s *model.Store) storeResponse {
	return storeResponse{
		ID:          s.ID,
		UserID:      s.UserID,
		Name:        s.Name,
		URL:         s.URL,
		Description: s.Description,
		LogoURL:     s.LogoURL,
		Status:      string(s.Status),
	}
}

// List は全ストアを返す。
// GET /api/stores
func (h *StoreHandler) List(w http.ResponseWriter, r *http.Request) {
	stores, err := h.stores.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	body := make([]storeResponse, 0, len(stores))
	for _, s := range stores {
		body = append(body, toStoreResponse(s))
	}
	writeJSON(w, http.StatusOK, body)
}

// Get は指定IDのストアを返す。
// GET /api/stores/{storeID}
func (h *StoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.stores.Get(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStoreResponse(s))
}

// GetMine は認証ユーザーが所有するストアを返す。
// GET /api/stores/mine
func (h *StoreHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	s, err := h.stores.GetMine(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStoreResponse(s))
}

// Upsert はストアを作成または更新する。
// POST /api/stores
func (h *StoreHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var input catalog.StoreInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeBadRequestBody(w)
		return
	}

	s, err := h.stores.Upsert(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStoreResponse(s))
}

// Delete はストアを削除する。
// DELETE /api/stores/{storeID}
func (h *StoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.stores.Delete(r.Context(), userID, chi.URLParam(r, "storeID")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
