package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trinityvault/trinity/internal/auth/domain"
	"github.com/trinityvault/trinity/internal/auth/store"
	"github.com/trinityvault/trinity/pkg/cryptox"
	"github.com/trinityvault/trinity/pkg/idx"
	"github.com/trinityvault/trinity/pkg/slogx"
)

const (
	// MinPasswordLength applies to both registration and password reset.
	MinPasswordLength = 8

	// MinUsernameLength and MaxUsernameLength bound usernames at registration.
	MinUsernameLength = 3
	MaxUsernameLength = 20

	// ReactivationWindow is how long a frozen account may be thawed by a
	// successful login before the freeze becomes permanent.
	ReactivationWindow = 30 * 24 * time.Hour
)

var (
	ErrInvalidUsername = errors.New("invalid_username")
	ErrWeakPassword    = errors.New("weak_password")
	ErrUsernameTaken   = errors.New("username_taken")
	ErrEmailTaken      = errors.New("email_taken")
	ErrPhoneTaken      = errors.New("phone_taken")
	ErrUserNotFound    = errors.New("user_not_found")
)

type UserService struct {
	Store store.Store
	Audit AuditSink
}

// Register creates a new account with the USER role. Password hashing happens
// here; nothing below the service layer ever sees a plaintext password.
func (s *UserService) Register(
	ctx context.Context,
	username, password, email, phone string,
) (domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)

	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return domain.User{}, ErrInvalidUsername
	}
	if len(password) < MinPasswordLength {
		return domain.User{}, ErrWeakPassword
	}

	// Pre-check each unique column so the caller learns which field
	// collided. The store's unique constraints remain the backstop for
	// concurrent registrations.
	if err := s.checkAvailable(ctx, username, email, phone); err != nil {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

func (s *UserService) checkAvailable(ctx context.Context, username, email, phone string) error {
	if _, err := s.Store.Users().GetUserByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if email != "" {
		if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	if phone != "" {
		if _, err := s.Store.Users().GetUserByPhone(ctx, phone); err == nil {
			return ErrPhoneTaken
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return nil
}

// VerifyCredentials checks a username/password pair. Unknown usernames and
// wrong passwords both return ErrInvalidCredentials so callers cannot probe
// for account existence.
//
// A successful verification against a frozen account reactivates it, provided
// the freeze is younger than ReactivationWindow. Accounts frozen longer than
// that stay frozen but the credentials still verify.
func (s *UserService) VerifyCredentials(
	ctx context.Context,
	username, password string,
) (domain.User, error) {
	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if u.Status == domain.StatusFrozen && u.FrozenAt != nil {
		now := time.Now().UTC()
		if now.Sub(*u.FrozenAt) < ReactivationWindow {
			if err := s.Store.Users().UpdateStatus(ctx, u.ID, domain.StatusActive, nil); err != nil {
				return domain.User{}, err
			}
			u.Status = domain.StatusActive
			u.FrozenAt = nil
			s.audit(ctx, fmt.Sprintf("account %s reactivated by successful login", u.ID), now)
		}
	}

	return u, nil
}

// Freeze marks the account frozen as of now. Frozen accounts keep their
// sessions; the state only matters at the next credential verification.
func (s *UserService) Freeze(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	if err := s.Store.Users().UpdateStatus(ctx, userID, domain.StatusFrozen, &now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.audit(ctx, fmt.Sprintf("account %s frozen", userID), now)
	return nil
}

// Delete removes the account and revokes every refresh token it holds, in one
// transaction.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().DeleteAllUserRefreshTokens(ctx, userID); err != nil {
			return err
		}
		return tx.Users().DeleteUser(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.audit(ctx, fmt.Sprintf("account %s deleted", userID), time.Now().UTC())
	return nil
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

// ListUsers returns every account, for the admin surface.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// AdminUpdate applies the non-nil fields to the target account. Role and
// status changes are audited; a password change rehashes here and revokes
// nothing.
func (s *UserService) AdminUpdate(
	ctx context.Context,
	userID string,
	role *domain.Role,
	status *domain.Status,
	password string,
) (domain.User, error) {
	now := time.Now().UTC()

	if password != "" && len(password) < MinPasswordLength {
		return domain.User{}, ErrWeakPassword
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if role != nil {
			if err := tx.Users().UpdateRole(ctx, userID, *role); err != nil {
				return err
			}
		}
		if status != nil {
			var frozenAt *time.Time
			if *status == domain.StatusFrozen {
				frozenAt = &now
			}
			if err := tx.Users().UpdateStatus(ctx, userID, *status, frozenAt); err != nil {
				return err
			}
		}
		if password != "" {
			hash, err := cryptox.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			if err := tx.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}

	if role != nil {
		s.audit(ctx, fmt.Sprintf("account %s role set to %s by admin", userID, *role), now)
	}
	if status != nil {
		s.audit(ctx, fmt.Sprintf("account %s status set to %s by admin", userID, *status), now)
	}

	return s.GetUserByID(ctx, userID)
}

func (s *UserService) audit(ctx context.Context, event string, at time.Time) {
	if s.Audit == nil {
		return
	}
	s.Audit.Record(ctx, event, at)
}
