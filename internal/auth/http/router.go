package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/trinityvault/trinity/internal/auth/domain"
	"github.com/trinityvault/trinity/internal/auth/service"
	"github.com/trinityvault/trinity/internal/auth/store"
	"github.com/trinityvault/trinity/pkg/httpx"
	"github.com/trinityvault/trinity/pkg/jwtx"
	"github.com/trinityvault/trinity/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store        store.Store
	TokenService *service.TokenService
	UserService  *service.UserService
	ResetService *service.ResetService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAccount()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// registerAuth wires the unauthenticated credential endpoints. None of them
// run the principal middleware: a login request never carries a bearer token
// worth inspecting, and a stale one must not interfere.
func (r *Router) registerAuth() {
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(&RegisterHandler{UserService: r.UserService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(&LoginHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(&RefreshHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/forgot-password",
		httpx.Chain(&ForgotPasswordHandler{ResetService: r.ResetService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/reset-password",
		httpx.Chain(&ResetPasswordHandler{ResetService: r.ResetService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	social := httpx.Chain(&SocialLoginHandler{},
		httpx.RateLimitByIP(httpx.LenientLimit),
	)
	r.Mux.Handle("GET /v1/auth/social/{provider}", social)
	r.Mux.Handle("POST /v1/auth/social/{provider}", social)
}

func (r *Router) registerAccount() {
	userinfo := &UserInfoHandler{UserService: r.UserService}
	r.Mux.Handle("GET /v1/userinfo",
		httpx.Chain(userinfo,
			httpx.PrincipalMiddleware(r.verifier),
			RequireRole(domain.RoleUser),
			httpx.RateLimitByPrincipal(httpx.ModerateLimit),
		),
	)

	account := &AccountHandler{UserService: r.UserService}
	r.Mux.Handle("POST /v1/account/freeze",
		httpx.Chain(http.HandlerFunc(account.HandleFreeze),
			httpx.PrincipalMiddleware(r.verifier),
			RequireRole(domain.RoleUser),
			httpx.RateLimitByPrincipal(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/account",
		httpx.Chain(http.HandlerFunc(account.HandleDelete),
			httpx.PrincipalMiddleware(r.verifier),
			RequireRole(domain.RoleUser),
			httpx.RateLimitByPrincipal(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	admin := &AdminUsersHandler{UserService: r.UserService}
	r.Mux.Handle("GET /v1/admin/users",
		httpx.Chain(http.HandlerFunc(admin.HandleList),
			httpx.PrincipalMiddleware(r.verifier),
			RequireRole(domain.RoleAdmin),
			httpx.RateLimitByPrincipal(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PUT /v1/admin/users/{id}",
		httpx.Chain(http.HandlerFunc(admin.HandleUpdate),
			httpx.PrincipalMiddleware(r.verifier),
			RequireRole(domain.RoleAdmin),
			httpx.RateLimitByPrincipal(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
