package httpx

import (
	"net/http"
	"strings"

	"github.com/trinityvault/trinity/pkg/jwtx"
	"github.com/trinityvault/trinity/pkg/slogx"
)

// PrincipalMiddleware verifies a bearer token, if one is present, and
// attaches the resulting Principal to the request context. It never rejects:
// a missing or invalid token just means the request proceeds unauthenticated,
// and the per-route role guard decides whether that matters.
func PrincipalMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				slogx.FromContext(ctx).Debug("bearer token rejected", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			p := Principal{
				Subject:  claims.Subject,
				Username: claims.Username,
				Role:     claims.Role,
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(ctx, p)))
		})
	}
}
