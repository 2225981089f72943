package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/bazaar/internal/identity"
	"github.com/hitoshi/bazaar/internal/model"
)

// RoleAdministrator は管理者向けのロール管理インターフェース。
type RoleAdministrator interface {
	SetRole(ctx context.Context, userID string, role model.Role) (bool, error)
	SyncUser(ctx context.Context, userID string) error
	SyncAll(ctx context.Context) (*identity.SyncResult, error)
}

// AdminHandler はロール管理のHTTPハンドラー。
// ルーターで共有シークレットのミドルウェアを通して公開される。
type AdminHandler struct {
	roles RoleAdministrator
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(roles RoleAdministrator) *AdminHandler {
	return &AdminHandler{roles: roles}
}

type setRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type setRoleResponse struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Synced bool   `json:"synced"`
}

// SetRole はユーザーのロールを変更し、IdPへ逆同期する。
// POST /api/admin/set-role
func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequestBody(w)
		return
	}

	synced, err := h.roles.SetRole(r.Context(), req.UserID, model.Role(req.Role))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, setRoleResponse{
		UserID: req.UserID,
		Role:   req.Role,
		Synced: synced,
	})
}

type syncRoleRequest struct {
	UserID string `json:"user_id"`
	All    bool   `json:"all"`
}

// SyncRole はローカルのロールをIdPへ再送する。
// POST /api/admin/sync-role
// user_id指定で単一ユーザー、all=trueで全ユーザーを対象にする。
func (h *AdminHandler) SyncRole(w http.ResponseWriter, r *http.Request) {
	var req syncRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequestBody(w)
		return
	}

	if req.All {
		result, err := h.roles.SyncAll(r.Context())
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if req.UserID == "" {
		handleServiceError(w, model.NewInvalidRequestError("user_idまたはall=trueを指定してください。"))
		return
	}

	if err := h.roles.SyncUser(r.Context(), req.UserID); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, identity.SyncResult{Synced: 1})
}
