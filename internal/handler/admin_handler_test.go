package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/bazaar/internal/identity"
	"github.com/hitoshi/bazaar/internal/model"
)

type mockRoleAdministrator struct {
	setRoleFn  func(ctx context.Context, userID string, role model.Role) (bool, error)
	syncUserFn func(ctx context.Context, userID string) error
	syncAllFn  func(ctx context.Context) (*identity.SyncResult, error)
}

func (m *mockRoleAdministrator) SetRole(ctx context.Context, userID string, role model.Role) (bool, error) {
	if m.setRoleFn != nil {
		return m.setRoleFn(ctx, userID, role)
	}
	return true, nil
}

func (m *mockRoleAdministrator) SyncUser(ctx context.Context, userID string) error {
	if m.syncUserFn != nil {
		return m.syncUserFn(ctx, userID)
	}
	return nil
}

func (m *mockRoleAdministrator) SyncAll(ctx context.Context) (*identity.SyncResult, error) {
	if m.syncAllFn != nil {
		return m.syncAllFn(ctx)
	}
	return &identity.SyncResult{}, nil
}

// --- POST /api/admin/set-role テスト ---

func TestAdminHandler_SetRole_Success(t *testing.T) {
	roles := &mockRoleAdministrator{
		setRoleFn: func(ctx context.Context, userID string, role model.Role) (bool, error) {
			if userID != "user-1" || role != model.RoleSeller {
				t.Errorf("unexpected args: userID=%s role=%s", userID, role)
			}
			return true, nil
		},
	}
	h := NewAdminHandler(roles)

	body := bytes.NewReader([]byte(`{"user_id":"user-1","role":"SELLER"}`))
	req := httptest.NewRequest(http.MethodPost, "/api/admin/set-role", body)
	w := httptest.NewRecorder()

	h.SetRole(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp setRoleResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Synced || resp.Role != "SELLER" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestAdminHandler_SetRole_InvalidRole(t *testing.T) {
	roles := &mockRoleAdministrator{
		setRoleFn: func(ctx context.Context, userID string, role model.Role) (bool, error) {
			return false, model.NewInvalidRoleError(string(role))
		},
	}
	h := NewAdminHandler(roles)

	body := bytes.NewReader([]byte(`{"user_id":"user-1","role":"SUPERUSER"}`))
	req := httptest.NewRequest(http.MethodPost, "/api/admin/set-role", body)
	w := httptest.NewRecorder()

	h.SetRole(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != "INVALID_ROLE" {
		t.Errorf("expected INVALID_ROLE, got %s", resp["code"])
	}
}

func TestAdminHandler_SetRole_UnknownUser(t *testing.T) {
	roles := &mockRoleAdministrator{
		setRoleFn: func(ctx context.Context, userID string, role model.Role) (bool, error) {
			return false, model.NewUserNotFoundError()
		},
	}
	h := NewAdminHandler(roles)

	body := bytes.NewReader([]byte(`{"user_id":"ghost","role":"ADMIN"}`))
	req := httptest.NewRequest(http.MethodPost, "/api/admin/set-role", body)
	w := httptest.NewRecorder()

	h.SetRole(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

// --- POST /api/admin/sync-role テスト ---

func TestAdminHandler_SyncRole_SingleUser(t *testing.T) {
	var gotUserID string
	roles := &mockRoleAdministrator{
		syncUserFn: func(ctx context.Context, userID string) error {
			gotUserID = userID
			return nil
		},
	}
	h := NewAdminHandler(roles)

	body := bytes.NewReader([]byte(`{"user_id":"user-1"}`))
	req := httptest.NewRequest(http.MethodPost, "/api/admin/sync-role", body)
	w := httptest.NewRecorder()

	h.SyncRole(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if gotUserID != "user-1" {
		t.Errorf("expected user-1 synced, got %s", gotUserID)
	}
}

func TestAdminHandler_SyncRole_All(t *testing.T) {
	roles := &mockRoleAdministrator{
		syncAllFn: func(ctx context.Context) (*identity.SyncResult, error) {
			return &identity.SyncResult{Synced: 10, Failed: 2}, nil
		},
	}
	h := NewAdminHandler(roles)

	body := bytes.NewReader([]byte(`{"all":true}`))
	req := httptest.NewRequest(http.MethodPost, "/api/admin/sync-role", body)
	w := httptest.NewRecorder()

	h.SyncRole(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp identity.SyncResult
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Synced != 10 || resp.Failed != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestAdminHandler_SyncRole_MissingTarget(t *testing.T) {
	h := NewAdminHandler(&mockRoleAdministrator{})

	body := bytes.NewReader([]byte(`{}`))
	req := httptest.NewRequest(http.MethodPost, "/api/admin/sync-role", body)
	w := httptest.NewRecorder()

	h.SyncRole(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}
