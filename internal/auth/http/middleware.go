package http

import (
	"net/http"

	"github.com/trinityvault/trinity/internal/auth/domain"
	"github.com/trinityvault/trinity/pkg/httpx"
)

// RequireRole guards a route with a minimum role. Requests with no principal
// get 401; authenticated callers below the minimum get 403. ADMIN passes
// every gate.
func RequireRole(minimum domain.Role) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := httpx.PrincipalFromContext(r.Context())
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				httpx.WriteError(w, http.StatusUnauthorized,
					"unauthorized", "a valid bearer token is required")
				return
			}

			role, err := domain.ParseRole(p.Role)
			if err != nil || !role.AtLeast(minimum) {
				httpx.WriteError(w, http.StatusForbidden,
					"forbidden", "insufficient role for this resource")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
