package http

import (
	"errors"
	"net/http"

	"github.com/trinityvault/trinity/internal/auth/service"
	"github.com/trinityvault/trinity/pkg/httpx"
	"github.com/trinityvault/trinity/pkg/slogx"
)

// AccountHandler covers self-service lifecycle operations: freezing the
// account and deleting it outright.
type AccountHandler struct {
	UserService *service.UserService
}

// HandleFreeze marks the caller's account FROZEN. A login within the
// reactivation window thaws it again.
func (h *AccountHandler) HandleFreeze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	p, ok := httpx.PrincipalFromContext(ctx)
	if !ok {
		writeServerError(w)
		return
	}

	err := h.UserService.Freeze(ctx, p.Subject)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"message": "account frozen",
		})
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound,
			"account_not_found", "account no longer exists")
	default:
		log.Error("account freeze failed", "user_id", p.Subject, "err", err)
		writeServerError(w)
	}
}

// HandleDelete removes the caller's account and revokes every refresh token
// it holds. Outstanding access tokens ride out their short TTL.
func (h *AccountHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	p, ok := httpx.PrincipalFromContext(ctx)
	if !ok {
		writeServerError(w)
		return
	}

	err := h.UserService.Delete(ctx, p.Subject)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"message": "account deleted",
		})
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound,
			"account_not_found", "account no longer exists")
	default:
		log.Error("account deletion failed", "user_id", p.Subject, "err", err)
		writeServerError(w)
	}
}
