package http

import (
	"errors"
	"net/http"

	"github.com/trinityvault/trinity/internal/auth/service"
	"github.com/trinityvault/trinity/pkg/httpx"
	"github.com/trinityvault/trinity/pkg/slogx"
)

type LoginHandler struct {
	TokenService *service.TokenService
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ServeHTTP exchanges a username/password pair for an access/refresh pair.
// Unknown usernames and bad passwords produce the same 401 body.
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.TokenService.Login(ctx, req.Username, req.Password)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, toTokenResponse(pair))
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_credentials", "username or password is incorrect")
	default:
		log.Error("login failed", "err", err)
		writeServerError(w)
	}
}
