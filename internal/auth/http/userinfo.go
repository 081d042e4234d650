package http

import (
	"net/http"

	"github.com/trinityvault/trinity/internal/auth/service"
	"github.com/trinityvault/trinity/pkg/httpx"
	"github.com/trinityvault/trinity/pkg/slogx"
)

type UserInfoHandler struct {
	UserService *service.UserService
}

// ServeHTTP returns the authenticated caller's account. The role guard has
// already run, so a missing principal here is a wiring bug.
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	p, ok := httpx.PrincipalFromContext(ctx)
	if !ok {
		writeServerError(w)
		return
	}

	u, err := h.UserService.GetUserByID(ctx, p.Subject)
	if err != nil {
		log.Warn("failed to load user", "user_id", p.Subject, "err", err)
		writeServerError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}
