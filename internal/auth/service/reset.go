package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trinityvault/trinity/internal/auth/domain"
	"github.com/trinityvault/trinity/internal/auth/notify"
	"github.com/trinityvault/trinity/internal/auth/store"
	"github.com/trinityvault/trinity/pkg/cryptox"
	"github.com/trinityvault/trinity/pkg/idx"
	"github.com/trinityvault/trinity/pkg/slogx"
)

const (
	// ResetCodeTTL is how long a delivered reset code stays redeemable.
	ResetCodeTTL = 15 * time.Minute

	// ResetCodeDigits is the length of the numeric code sent to the user.
	ResetCodeDigits = 6
)

var (
	ErrAccountNotFound = errors.New("account_not_found")
	ErrInvalidCode     = errors.New("invalid_reset_code")
	ErrCodeExpired     = errors.New("reset_code_expired")
	ErrDeliveryFailed  = errors.New("reset_code_delivery_failed")
)

type ResetService struct {
	Store    store.Store
	Notifier notify.Notifier
	Audit    AuditSink
}

// Request generates a short numeric reset code for the account matching the
// destination (email first, then phone), persists its fingerprint, and hands
// the plaintext code to the notifier. The code is persisted before delivery
// is attempted, so a delivery failure leaves a live code behind; it ages out
// with the usual TTL.
func (s *ResetService) Request(ctx context.Context, destination string) error {
	now := time.Now().UTC()

	u, err := s.lookupByDestination(ctx, destination)
	if err != nil {
		return err
	}

	code, err := s.issueCode(ctx, u.ID, destination, now)
	if err != nil {
		return err
	}

	if err := s.Notifier.Deliver(ctx, destination, code); err != nil {
		slogx.FromContext(ctx).Error("reset code delivery failed",
			"user_id", u.ID, "error", err)
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	if s.Audit != nil {
		s.Audit.Record(ctx, fmt.Sprintf("reset code issued for account %s", u.ID), now)
	}
	return nil
}

// Complete redeems a reset code and installs the new password. The code is
// deleted in the same transaction as the password write, so under concurrent
// redemption exactly one caller succeeds. A weak password leaves the code
// intact for another attempt.
func (s *ResetService) Complete(ctx context.Context, code, newPassword string) error {
	now := time.Now().UTC()
	fp := cryptox.FingerprintToken(code)

	var userID string

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		rc, err := tx.ResetCodes().GetResetCodeByHash(ctx, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidCode
			}
			return err
		}

		if now.After(rc.ExpiresAt) {
			_ = tx.ResetCodes().DeleteResetCode(ctx, fp)
			return ErrCodeExpired
		}

		if len(newPassword) < MinPasswordLength {
			return ErrWeakPassword
		}

		hash, err := cryptox.HashPassword(newPassword)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		if err := tx.Users().UpdatePasswordHash(ctx, rc.UserID, hash); err != nil {
			return err
		}

		// Single-use: losing a delete race means someone else already
		// consumed the code.
		if err := tx.ResetCodes().DeleteResetCode(ctx, fp); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidCode
			}
			return err
		}

		userID = rc.UserID
		return nil
	})
	if err != nil {
		return err
	}

	if s.Audit != nil {
		s.Audit.Record(ctx, fmt.Sprintf("password reset completed for account %s", userID), now)
	}
	return nil
}

// Peek validates and consumes a reset code without touching the password,
// returning the account it belonged to. Kept for tooling; the HTTP surface
// does not expose it.
func (s *ResetService) Peek(ctx context.Context, code string) (string, error) {
	now := time.Now().UTC()
	fp := cryptox.FingerprintToken(code)

	var userID string
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		rc, err := tx.ResetCodes().GetResetCodeByHash(ctx, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidCode
			}
			return err
		}
		if now.After(rc.ExpiresAt) {
			_ = tx.ResetCodes().DeleteResetCode(ctx, fp)
			return ErrCodeExpired
		}
		if err := tx.ResetCodes().DeleteResetCode(ctx, fp); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidCode
			}
			return err
		}
		userID = rc.UserID
		return nil
	})
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *ResetService) lookupByDestination(ctx context.Context, destination string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, destination)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	u, err = s.Store.Users().GetUserByPhone(ctx, destination)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrAccountNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

func (s *ResetService) issueCode(
	ctx context.Context,
	userID, destination string,
	now time.Time,
) (string, error) {
	for range maxFingerprintRetries {
		code, err := cryptox.GenerateNumericCode(ResetCodeDigits)
		if err != nil {
			return "", err
		}

		rc := domain.ResetCode{
			ID:          idx.New().String(),
			UserID:      userID,
			CodeHash:    cryptox.FingerprintToken(code),
			Destination: destination,
			ExpiresAt:   now.Add(ResetCodeTTL),
		}

		err = s.Store.ResetCodes().CreateResetCode(ctx, rc)
		if err == nil {
			return code, nil
		}
		// Six digits collide for real; regenerate and try again.
		if errors.Is(err, store.ErrAlreadyExists) {
			continue
		}
		return "", err
	}
	return "", errors.New("reset code fingerprint collision persisted across retries")
}
