package http

import (
	"errors"
	"net/http"

	"github.com/trinityvault/trinity/internal/auth/domain"
	"github.com/trinityvault/trinity/internal/auth/service"
	"github.com/trinityvault/trinity/pkg/httpx"
	"github.com/trinityvault/trinity/pkg/slogx"
)

// AdminUsersHandler is the ADMIN-only management surface over accounts.
type AdminUsersHandler struct {
	UserService *service.UserService
}

// HandleList returns every account.
func (h *AdminUsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	users, err := h.UserService.ListUsers(ctx)
	if err != nil {
		log.Error("listing users failed", "err", err)
		writeServerError(w)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"users": out})
}

type adminUpdateRequest struct {
	Role     *string `json:"role"`
	Status   *string `json:"status"`
	Password string  `json:"password"`
}

// HandleUpdate applies role, status, and password changes to the account in
// the path. Absent fields are left untouched.
func (h *AdminUsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := r.PathValue("id")
	if userID == "" {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "missing user id")
		return
	}

	var req adminUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var role *domain.Role
	if req.Role != nil {
		parsed, err := domain.ParseRole(*req.Role)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest,
				"invalid_role", "role must be USER or ADMIN")
			return
		}
		role = &parsed
	}

	var status *domain.Status
	if req.Status != nil {
		parsed, err := domain.ParseStatus(*req.Status)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest,
				"invalid_status", "status must be ACTIVE or FROZEN")
			return
		}
		status = &parsed
	}

	u, err := h.UserService.AdminUpdate(ctx, userID, role, status, req.Password)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound,
			"account_not_found", "no account with that id")
	case errors.Is(err, service.ErrWeakPassword):
		httpx.WriteError(w, http.StatusBadRequest,
			"weak_password", "password must be at least 8 characters")
	default:
		log.Error("admin update failed", "user_id", userID, "err", err)
		writeServerError(w)
	}
}
