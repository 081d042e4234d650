package service

import (
	"context"
	"errors"
	"time"

	"github.com/trinityvault/trinity/internal/auth/domain"
	"github.com/trinityvault/trinity/internal/auth/store"
	"github.com/trinityvault/trinity/pkg/cryptox"
	"github.com/trinityvault/trinity/pkg/idx"
	"github.com/trinityvault/trinity/pkg/jwtx"
	"github.com/trinityvault/trinity/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
)

// maxFingerprintRetries bounds the regenerate loop when a freshly minted
// opaque token collides with an existing fingerprint. With 256-bit tokens a
// single retry is already astronomically unlikely.
const maxFingerprintRetries = 3

// CredentialVerifier checks a username/password pair and returns the account
// it belongs to. UserService is the production implementation.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, username, password string) (domain.User, error)
}

type TokenService struct {
	Codec       *jwtx.Codec
	Store       store.Store
	Credentials CredentialVerifier
	RefreshTTL  time.Duration
}

// Login verifies the credentials and issues a fresh access/refresh pair.
// Every credential failure surfaces as ErrInvalidCredentials.
func (s *TokenService) Login(
	ctx context.Context,
	username, password string,
) (*domain.TokenPair, error) {
	now := time.Now()

	u, err := s.Credentials.VerifyCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}

	access, err := s.Codec.Issue(u.ID, u.Username, u.Role.String(), now)
	if err != nil {
		return nil, err
	}

	refreshOpaque, err := s.issueRefresh(ctx, u.ID, now)
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("login succeeded", "user_id", u.ID)

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    s.Codec.TTL(),
	}, nil
}

// Refresh redeems an opaque refresh token for a new access token. The refresh
// token is not rotated: the same opaque value keeps working until its expiry.
// Role is re-read from the store so a demotion or promotion takes effect on
// the next redeem, not at the next login.
func (s *TokenService) Refresh(ctx context.Context, refreshOpaque string) (*domain.TokenPair, error) {
	now := time.Now()

	fp := cryptox.FingerprintToken(refreshOpaque)
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	if now.After(rt.ExpiresAt) {
		// Purge the stale row so the janitor has less to do.
		_ = s.Store.RefreshTokens().DeleteRefreshToken(ctx, fp)
		return nil, ErrInvalidRefresh
	}

	u, err := s.Store.Users().GetUserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	access, err := s.Codec.Issue(u.ID, u.Username, u.Role.String(), now)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    s.Codec.TTL(),
	}, nil
}

// RevokeAll drops every refresh token held by the user.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) error {
	return s.Store.RefreshTokens().DeleteAllUserRefreshTokens(ctx, userID)
}

func (s *TokenService) issueRefresh(ctx context.Context, userID string, now time.Time) (string, error) {
	for range maxFingerprintRetries {
		opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return "", err
		}

		rt := domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    userID,
			TokenHash: cryptox.FingerprintToken(opaque),
			ExpiresAt: now.Add(s.RefreshTTL),
		}

		err = s.Store.RefreshTokens().CreateRefreshToken(ctx, rt)
		if err == nil {
			return opaque, nil
		}
		if errors.Is(err, store.ErrAlreadyExists) {
			continue
		}
		return "", err
	}
	return "", errors.New("refresh token fingerprint collision persisted across retries")
}
