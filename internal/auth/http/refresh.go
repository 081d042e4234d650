package http

import (
	"errors"
	"net/http"

	"github.com/trinityvault/trinity/internal/auth/service"
	"github.com/trinityvault/trinity/pkg/httpx"
	"github.com/trinityvault/trinity/pkg/slogx"
)

type RefreshHandler struct {
	TokenService *service.TokenService
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ServeHTTP redeems an opaque refresh token for a new access token. The
// refresh token is returned unchanged; it stays valid until expiry.
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.TokenService.Refresh(ctx, req.RefreshToken)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, toTokenResponse(pair))
	case errors.Is(err, service.ErrInvalidRefresh):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_refresh_token", "refresh token is unknown or expired")
	default:
		log.Error("token refresh failed", "err", err)
		writeServerError(w)
	}
}
