package http

import (
	"errors"
	"net/http"

	"github.com/trinityvault/trinity/internal/auth/service"
	"github.com/trinityvault/trinity/pkg/httpx"
	"github.com/trinityvault/trinity/pkg/slogx"
)

type RegisterHandler struct {
	UserService *service.UserService
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// ServeHTTP creates a new account. Validation failures reply 400 and
// uniqueness collisions reply 409, each with a field-specific error code.
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.UserService.Register(ctx, req.Username, req.Password, req.Email, req.Phone)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
	case errors.Is(err, service.ErrInvalidUsername):
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_username", "username must be 3 to 20 characters")
	case errors.Is(err, service.ErrWeakPassword):
		httpx.WriteError(w, http.StatusBadRequest,
			"weak_password", "password must be at least 8 characters")
	case errors.Is(err, service.ErrUsernameTaken):
		httpx.WriteError(w, http.StatusConflict,
			"username_taken", "that username is already registered")
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict,
			"email_taken", "that email is already registered")
	case errors.Is(err, service.ErrPhoneTaken):
		httpx.WriteError(w, http.StatusConflict,
			"phone_taken", "that phone number is already registered")
	default:
		log.Error("registration failed", "err", err)
		writeServerError(w)
	}
}
