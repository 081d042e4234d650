package store

import (
	"context"
	"errors"
	"time"

	"github.com/trinityvault/trinity/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today,
// postgres later) implement this. It exposes sub-repositories to keep
// concerns tidy and testable.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	ResetCodes() ResetCodes

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to do multi-step operations that must be atomic
	// (e.g. consuming a reset code while updating the password hash).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is the login lookup.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByEmail and GetUserByPhone resolve password-reset destinations.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUserByPhone(ctx context.Context, phone string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Returns ErrAlreadyExists when username, email or phone is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// ListUsers returns all users ordered by creation date (newest first).
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// UpdateRole changes the user's role.
	UpdateRole(ctx context.Context, userID string, role domain.Role) error

	// UpdateStatus sets the lifecycle state; frozenAt is nil when the state
	// is ACTIVE.
	UpdateStatus(ctx context.Context, userID string, status domain.Status, frozenAt *time.Time) error

	// DeleteUser removes a user; refresh tokens and reset codes cascade per
	// schema.
	DeleteUser(ctx context.Context, userID string) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record. Returns
	// ErrAlreadyExists on a fingerprint collision so issuance can retry.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token record by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// DeleteRefreshToken removes a single token record. Returns ErrNotFound
	// when the record was already gone.
	DeleteRefreshToken(ctx context.Context, hash string) error

	// DeleteAllUserRefreshTokens bulk revocation for a subject (account
	// deletion, password reset).
	DeleteAllUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type ResetCodes interface {
	// CreateResetCode stores a freshly issued code record. Returns
	// ErrAlreadyExists on a fingerprint collision so issuance can retry.
	CreateResetCode(ctx context.Context, c domain.ResetCode) error

	// GetResetCodeByHash fetches a code record by its fingerprint.
	GetResetCodeByHash(ctx context.Context, hash string) (domain.ResetCode, error)

	// DeleteResetCode removes a code record. Returns ErrNotFound when the
	// record was already gone - callers rely on this to decide who won a
	// concurrent redeem.
	DeleteResetCode(ctx context.Context, hash string) error

	// DeleteExpiredResetCodes is housekeeping.
	DeleteExpiredResetCodes(ctx context.Context) error
}
