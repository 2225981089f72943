package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bazaar/internal/catalog"
	"github.com/hitoshi/bazaar/internal/model"
)

// CategoryManager はカテゴリ操作のインターフェース。
type CategoryManager interface {
	List(ctx context.Context) ([]*model.Category, error)
	Get(ctx context.Context, id string) (*model.Category, error)
	ListWithSubCategories(ctx context.Context) ([]*model.CategoryWithSubs, error)
	Upsert(ctx context.Context, input catalog.CategoryInput) (*model.Category, error)
	Delete(ctx context.Context, id string) error
}

// SubCategoryManager はサブカテゴリ操作のインターフェース。
type SubCategoryManager interface {
	ListByCategory(ctx context.Context, categoryID string) ([]*model.SubCategory, error)
	Get(ctx context.Context, id string) (*model.SubCategory, error)
	Upsert(ctx context.Context, input catalog.SubCategoryInput) (*model.SubCategory, error)
	Delete(ctx context.Context, id string) error
}

// CategoryHandler はカテゴリ・サブカテゴリのHTTPハンドラー。
type CategoryHandler struct {
	categories    CategoryManager
	subCategories SubCategoryManager
}

// NewCategoryHandler はCategoryHandlerを生成する。
func NewCategoryHandler(categories CategoryManager, subCategories SubCategoryManager) *CategoryHandler {
	return &CategoryHandler{categories: categories, subCategories: subCategories}
}

type categoryResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
	Featured bool   `json:"featured"`
}

type subCategoryResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	ImageURL   string `json:"image_url"`
	Featured   bool   `json:"featured"`
	CategoryID string `json:"category_id"`
}

type categoryWithSubsResponse struct {
	categoryResponse
	SubCategories []subCategoryResponse `json:"subcategories"`
}

func toCategoryResponse(c *model.Category) categoryResponse {
	return categoryResponse{
		ID:       c.ID,
		Name:     c.Name,
		URL:      c.URL,
		ImageURL: c.ImageURL,
		Featured: c.Featured,
	}
}

func toSubCategoryResponse(sc *model.SubCategory) subCategoryResponse {
	return subCategoryResponse{
		ID:         sc.ID,
		Name:       sc.Name,
		URL:        sc.URL,
		ImageURL:   sc.ImageURL,
		Featured:   sc.Featured,
		CategoryID: sc.CategoryID,
	}
}

// List は全カテゴリを返す。
// GET /api/categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	body := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		body = append(body, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, body)
}

// Home はホーム表示用にカテゴリとサブカテゴリを結合して返す。
// GET /api/categories/home
func (h *CategoryHandler) Home(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.ListWithSubCategories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	body := make([]categoryWithSubsResponse, 0, len(categories))
	for _, c := range categories {
		resp := categoryWithSubsResponse{
			categoryResponse: toCategoryResponse(&c.Category),
			SubCategories:    make([]subCategoryResponse, 0, len(c.SubCategories)),
		}
		for i := range c.SubCategories {
			resp.SubCategories = append(resp.SubCategories, toSubCategoryResponse(&c.SubCategories[i]))
		}
		body = append(body, resp)
	}
	writeJSON(w, http.StatusOK, body)
}

// Get は指定IDのカテゴリを返す。
// GET /api/categories/{categoryID}
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.categories.Get(r.Context(), chi.URLParam(r, "categoryID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

// Upsert はカテゴリを作成または更新する。
// POST /api/categories
func (h *CategoryHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var input catalog.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeBadRequestBody(w)
		return
	}

	c, err := h.categories.Upsert(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

// Delete はカテゴリを削除する。
// DELETE /api/categories/{categoryID}
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.categories.Delete(r.Context(), chi.URLParam(r, "categoryID")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSubCategories はカテゴリ配下のサブカテゴリを返す。
// GET /api/categories/{categoryID}/subcategories
func (h *CategoryHandler) ListSubCategories(w http.ResponseWriter, r *http.Request) {
	subs, err := h.subCategories.ListByCategory(r.Context(), chi.URLParam(r, "categoryID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	body := make([]subCategoryResponse, 0, len(subs))
	for _, sc := range subs {
		body = append(body, toSubCategoryResponse(sc))
	}
	writeJSON(w, http.StatusOK, body)
}

// GetSubCategory は指定IDのサブカテゴリを返す。
// GET /api/subcategories/{subCategoryID}
func (h *CategoryHandler) GetSubCategory(w http.ResponseWriter, r *http.Request) {
	sc, err := h.subCategories.Get(r.Context(), chi.URLParam(r, "subCategoryID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubCategoryResponse(sc))
}

// UpsertSubCategory はサブカテゴリを作成または更新する。
// POST /api/subcategories
func (h *CategoryHandler) UpsertSubCategory(w http.ResponseWriter, r *http.Request) {
	var input catalog.SubCategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeBadRequestBody(w)
		return
	}

	sc, err := h.subCategories.Upsert(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubCategoryResponse(sc))
}

// DeleteSubCategory はサブカテゴリを削除する。
// DELETE /api/subcategories/{subCategoryID}
func (h *CategoryHandler) DeleteSubCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.subCategories.Delete(r.Context(), chi.URLParam(r, "subCategoryID")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
