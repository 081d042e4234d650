package jwtx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trinityvault/trinity/pkg/jwtx"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestCodec(t *testing.T) *jwtx.Codec {
	t.Helper()
	codec, err := jwtx.NewCodec(testSecret, "vault-auth", 15*time.Minute)
	require.NoError(t, err)
	return codec
}

func TestNewCodecRejectsShortSecret(t *testing.T) {
	_, err := jwtx.NewCodec([]byte("too-short"), "vault-auth", time.Minute)
	require.Error(t, err)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Issue("01ARZ3NDEKTSV4RRFFQ69G5FAV", "alice", "USER", time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "01ARZ3NDEKTSV4RRFFQ69G5FAV", claims.Subject)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "USER", claims.Role)
	require.Equal(t, "vault-auth", claims.Issuer)
}

func TestVerifyExpiredToken(t *testing.T) {
	codec := newTestCodec(t)

	// Issue with a clock fixed in the past so the token is already stale.
	past := time.Now().Add(-time.Hour)
	token, err := codec.Issue("sub", "alice", "USER", past)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestVerifyWrongKey(t *testing.T) {
	codec := newTestCodec(t)
	other, err := jwtx.NewCodec([]byte("ffffffffffffffffffffffffffffffff"), "vault-auth", time.Minute)
	require.NoError(t, err)

	token, err := other.Issue("sub", "alice", "USER", time.Now())
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestVerifyMalformedToken(t *testing.T) {
	codec := newTestCodec(t)

	for _, in := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := codec.Verify(in)
		require.ErrorIs(t, err, jwtx.ErrMalformed, "input %q", in)
	}
}

func TestVerifyIssuerMismatch(t *testing.T) {
	codec := newTestCodec(t)
	other, err := jwtx.NewCodec(testSecret, "someone-else", time.Minute)
	require.NoError(t, err)

	token, err := other.Issue("sub", "alice", "USER", time.Now())
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}
