package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trinityvault/trinity/internal/auth/service"
	"github.com/trinityvault/trinity/internal/auth/store/drivers/sqlite"
	"github.com/trinityvault/trinity/pkg/jwtx"
)

const testIssuer = "trinity-test"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// env bundles the services wired against a throwaway sqlite store, the way
// the application assembles them.
type env struct {
	store    *sqlite.Store
	users    *service.UserService
	tokens   *service.TokenService
	resets   *service.ResetService
	notifier *fakeNotifier
	audit    *recordingAudit
}

func newTestEnv(t *testing.T) *env {
	t.Helper()

	s, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "auth.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	codec, err := jwtx.NewCodec(testSecret, testIssuer, 15*time.Minute)
	require.NoError(t, err)

	audit := &recordingAudit{}
	notifier := &fakeNotifier{}

	users := &service.UserService{Store: s, Audit: audit}
	tokens := &service.TokenService{
		Codec:       codec,
		Store:       s,
		Credentials: users,
		RefreshTTL:  14 * 24 * time.Hour,
	}
	resets := &service.ResetService{Store: s, Notifier: notifier, Audit: audit}

	return &env{
		store:    s,
		users:    users,
		tokens:   tokens,
		resets:   resets,
		notifier: notifier,
		audit:    audit,
	}
}

func (e *env) register(t *testing.T, username, password string) string {
	t.Helper()
	u, err := e.users.Register(context.Background(), username, password,
		username+"@example.com", "+6140000"+username)
	require.NoError(t, err)
	return u.ID
}

type delivery struct {
	destination string
	code        string
}

type fakeNotifier struct {
	mu         sync.Mutex
	deliveries []delivery
	fail       error
}

func (n *fakeNotifier) Deliver(_ context.Context, destination, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.deliveries = append(n.deliveries, delivery{destination: destination, code: code})
	return nil
}

func (n *fakeNotifier) last(t *testing.T) delivery {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.deliveries)
	return n.deliveries[len(n.deliveries)-1]
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.deliveries)
}

type recordingAudit struct {
	mu     sync.Mutex
	events []string
}

func (a *recordingAudit) Record(_ context.Context, event string, _ time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *recordingAudit) all() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.events...)
}
