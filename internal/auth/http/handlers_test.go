package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trinityvault/trinity/internal/auth/domain"
	authhttp "github.com/trinityvault/trinity/internal/auth/http"
	"github.com/trinityvault/trinity/internal/auth/service"
	"github.com/trinityvault/trinity/internal/auth/store/drivers/sqlite"
	"github.com/trinityvault/trinity/pkg/jwtx"
)

const testIssuer = "trinity-test"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type capturingNotifier struct {
	mu    sync.Mutex
	codes map[string]string // destination -> last code
}

func (n *capturingNotifier) Deliver(_ context.Context, destination, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.codes == nil {
		n.codes = map[string]string{}
	}
	n.codes[destination] = code
	return nil
}

func (n *capturingNotifier) codeFor(t *testing.T, destination string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	code, ok := n.codes[destination]
	require.True(t, ok, "no code delivered to %s", destination)
	return code
}

type testServer struct {
	router   *authhttp.Router
	store    *sqlite.Store
	codec    *jwtx.Codec
	notifier *capturingNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "auth.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := jwtx.NewCodec(testSecret, testIssuer, 15*time.Minute)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := &capturingNotifier{}

	users := &service.UserService{Store: st, Audit: service.NewSlogAudit(logger)}
	tokens := &service.TokenService{
		Codec:       codec,
		Store:       st,
		Credentials: users,
		RefreshTTL:  14 * 24 * time.Hour,
	}
	resets := &service.ResetService{Store: st, Notifier: notifier}

	router := authhttp.NewRouter(codec, "test", st, logger)
	router.TokenService = tokens
	router.UserService = users
	router.ResetService = resets
	router.ApplyRoutes()

	return &testServer{router: router, store: st, codec: codec, notifier: notifier}
}

// do issues a JSON request against the router. remoteAddr keeps rate-limit
// buckets separate between test cases.
func (s *testServer) do(t *testing.T, method, path, body, token, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = remoteAddr
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *testServer) registerAndLogin(t *testing.T, username, password, addr string) (access, refresh string) {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/v1/auth/register",
		`{"username":"`+username+`","password":"`+password+`","email":"`+username+`@example.com"}`,
		"", addr)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/auth/login",
		`{"username":"`+username+`","password":"`+password+`"}`, "", addr)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	return body["access_token"].(string), body["refresh_token"].(string)
}

func TestRegisterLoginUserinfo(t *testing.T) {
	s := newTestServer(t)
	access, _ := s.registerAndLogin(t, "alice", "correct horse", "10.0.0.1:1000")

	rec := s.do(t, http.MethodGet, "/v1/userinfo", "", access, "10.0.0.1:1000")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	require.Equal(t, "alice", body["username"])
	require.Equal(t, "USER", body["role"])
	require.Equal(t, "ACTIVE", body["status"])
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestRegisterRejections(t *testing.T) {
	s := newTestServer(t)
	addr := "10.0.0.2:1000"

	rec := s.do(t, http.MethodPost, "/v1/auth/register",
		`{"username":"ab","password":"longenough"}`, "", addr)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_username")

	rec = s.do(t, http.MethodPost, "/v1/auth/register",
		`{"username":"bob","password":"short"}`, "", addr)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "weak_password")

	rec = s.do(t, http.MethodPost, "/v1/auth/register",
		`{"username":"bob","password":"longenough","email":"bob@example.com"}`, "", addr)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/register",
		`{"username":"bob","password":"longenough","email":"bob2@example.com"}`, "", addr)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "username_taken")
}

func TestLoginFailuresLookIdentical(t *testing.T) {
	s := newTestServer(t)
	s.registerAndLogin(t, "carol", "correct horse", "10.0.0.3:1000")

	wrongPw := s.do(t, http.MethodPost, "/v1/auth/login",
		`{"username":"carol","password":"wrong"}`, "", "10.0.0.3:1000")
	unknown := s.do(t, http.MethodPost, "/v1/auth/login",
		`{"username":"nobody","password":"correct horse"}`, "", "10.0.0.3:1000")

	require.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.Equal(t, wrongPw.Body.String(), unknown.Body.String())
}

func TestProtectedRouteAuth(t *testing.T) {
	s := newTestServer(t)
	addr := "10.0.0.4:1000"

	t.Run("no token", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/v1/userinfo", "", "", addr)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/v1/userinfo", "", "not.a.jwt", addr)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		stale, err := s.codec.Issue("some-user", "ghost", "USER", time.Now().Add(-time.Hour))
		require.NoError(t, err)
		rec := s.do(t, http.MethodGet, "/v1/userinfo", "", stale, addr)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRefreshFlow(t *testing.T) {
	s := newTestServer(t)
	addr := "10.0.0.5:1000"
	_, refresh := s.registerAndLogin(t, "dave", "correct horse", addr)

	rec := s.do(t, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+refresh+`"}`, "", addr)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	require.Equal(t, refresh, body["refresh_token"], "refresh token must not rotate")

	// The fresh access token works.
	rec = s.do(t, http.MethodGet, "/v1/userinfo", "", body["access_token"].(string), addr)
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("unknown refresh token", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/auth/refresh",
			`{"refresh_token":"bogus"}`, "", addr)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid_refresh_token")
	})
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t)
	addr := "10.0.0.6:1000"
	s.registerAndLogin(t, "erin", "old password", addr)

	rec := s.do(t, http.MethodPost, "/v1/auth/forgot-password",
		`{"destination":"erin@example.com"}`, "", addr)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	code := s.notifier.codeFor(t, "erin@example.com")
	require.Len(t, code, 6)

	rec = s.do(t, http.MethodPost, "/v1/auth/reset-password",
		`{"code":"`+code+`","new_password":"fresh password"}`, "", addr)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Old password no longer works, new one does.
	rec = s.do(t, http.MethodPost, "/v1/auth/login",
		`{"username":"erin","password":"old password"}`, "", addr)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodPost, "/v1/auth/login",
		`{"username":"erin","password":"fresh password"}`, "", "10.0.0.7:1000")
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("code is single use", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/auth/reset-password",
			`{"code":"`+code+`","new_password":"another password"}`, "", "10.0.0.7:1000")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid_code")
	})

	t.Run("unknown destination", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/auth/forgot-password",
			`{"destination":"ghost@example.com"}`, "", "10.0.0.7:1000")
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Contains(t, rec.Body.String(), "account_not_found")
	})
}

func TestAdminSurface(t *testing.T) {
	s := newTestServer(t)
	addr := "10.0.0.8:1000"
	userAccess, _ := s.registerAndLogin(t, "frank", "correct horse", addr)

	// Promote a second account to ADMIN directly in the store, then log in.
	adminAddr := "10.0.0.9:1000"
	s.registerAndLogin(t, "root", "correct horse", adminAddr)
	u, err := s.store.Users().GetUserByUsername(context.Background(), "root")
	require.NoError(t, err)
	require.NoError(t, s.store.Users().UpdateRole(context.Background(), u.ID, domain.RoleAdmin))

	rec := s.do(t, http.MethodPost, "/v1/auth/login",
		`{"username":"root","password":"correct horse"}`, "", adminAddr)
	require.Equal(t, http.StatusOK, rec.Code)
	adminAccess := decodeBody(t, rec)["access_token"].(string)

	t.Run("USER gets 403", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/v1/admin/users", "", userAccess, addr)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("ADMIN can list", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/v1/admin/users", "", adminAccess, adminAddr)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "frank")
		require.Contains(t, rec.Body.String(), "root")
	})

	t.Run("ADMIN can update role and status", func(t *testing.T) {
		frank, err := s.store.Users().GetUserByUsername(context.Background(), "frank")
		require.NoError(t, err)

		rec := s.do(t, http.MethodPut, "/v1/admin/users/"+frank.ID,
			`{"role":"ADMIN","status":"FROZEN"}`, adminAccess, adminAddr)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decodeBody(t, rec)
		require.Equal(t, "ADMIN", body["role"])
		require.Equal(t, "FROZEN", body["status"])
	})

	t.Run("bad role value", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, "/v1/admin/users/whoever",
			`{"role":"SUPERUSER"}`, adminAccess, adminAddr)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid_role")
	})

	t.Run("unknown user id", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, "/v1/admin/users/missing",
			`{"status":"ACTIVE"}`, adminAccess, adminAddr)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAccountLifecycle(t *testing.T) {
	s := newTestServer(t)
	addr := "10.0.0.10:1000"
	access, refresh := s.registerAndLogin(t, "grace", "correct horse", addr)

	t.Run("freeze then login reactivates", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/account/freeze", "", access, addr)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		u, err := s.store.Users().GetUserByUsername(context.Background(), "grace")
		require.NoError(t, err)
		require.Equal(t, domain.StatusFrozen, u.Status)

		rec = s.do(t, http.MethodPost, "/v1/auth/login",
			`{"username":"grace","password":"correct horse"}`, "", addr)
		require.Equal(t, http.StatusOK, rec.Code)

		u, err = s.store.Users().GetUserByUsername(context.Background(), "grace")
		require.NoError(t, err)
		require.Equal(t, domain.StatusActive, u.Status)
	})

	t.Run("delete revokes refresh tokens", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, "/v1/account", "", access, addr)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = s.do(t, http.MethodPost, "/v1/auth/refresh",
			`{"refresh_token":"`+refresh+`"}`, "", "10.0.0.11:1000")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSystemAndStubs(t *testing.T) {
	s := newTestServer(t)
	addr := "10.0.0.12:1000"

	rec := s.do(t, http.MethodGet, "/livez", "", "", addr)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = s.do(t, http.MethodGet, "/readyz", "", "", addr)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"database":"ok"`)

	rec = s.do(t, http.MethodGet, "/v1/auth/social/google", "", "", addr)
	require.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/v1/auth/login", `{not json`, "", "10.0.0.13:1000")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_request")
}
