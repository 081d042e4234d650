package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrIssuer     = errors.New("jwtx: issuer mismatch")

	errShortSecret = errors.New("jwtx: secret key must be at least 32 bytes")
)

// Verifier validates a token string and gives you back the claims if it's
// legit. Split out as an interface so HTTP middleware can be tested against
// a fake.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// Codec issues and verifies HS256-signed access tokens with a process-wide
// secret. The secret is immutable after construction, so a single Codec is
// safe for concurrent use on the hottest request path. Rotating the secret
// (restart with a new key) invalidates every outstanding token.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewCodec builds a Codec. The secret must carry at least 256 bits so the
// HMAC is not the weakest link.
func NewCodec(secret []byte, issuer string, ttl time.Duration) (*Codec, error) {
	if len(secret) < 32 {
		return nil, errShortSecret
	}
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &Codec{secret: key, issuer: issuer, ttl: ttl}, nil
}

// TTL reports the configured access-token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs a token whose claims bind subject, username and role with
// issued-at = now and expires-at = now + TTL. Taking now as a parameter keeps
// expiry behaviour testable without a clock abstraction.
func (c *Codec) Issue(subject, username, role string, now time.Time) (string, error) {
	claims := NewAccessClaims(subject, username, role, c.ttl, c.issuer, now)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Verify recomputes the signature and validates expiry and issuer. It has no
// side effects and is deterministic for a given token and wall clock.
func (c *Codec) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		default:
			return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	if c.issuer != "" && claims.Issuer != c.issuer {
		return Claims{}, ErrIssuer
	}

	return *claims, nil
}
