package http

import (
	"net/http"

	"github.com/trinityvault/trinity/pkg/httpx"
)

// SocialLoginHandler reserves the federated login routes. The upstream
// provider integrations are not wired yet, so every provider replies 501.
type SocialLoginHandler struct{}

func (h *SocialLoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	httpx.WriteError(w, http.StatusNotImplemented,
		"not_implemented", "social login via "+provider+" is not available")
}
