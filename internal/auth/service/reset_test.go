package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trinityvault/trinity/internal/auth/domain"
	"github.com/trinityvault/trinity/internal/auth/service"
	"github.com/trinityvault/trinity/pkg/cryptox"
	"github.com/trinityvault/trinity/pkg/idx"
)

func TestResetRequest(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.register(t, "alice", "correct horse")

	t.Run("unknown destination", func(t *testing.T) {
		err := e.resets.Request(ctx, "nobody@example.com")
		require.ErrorIs(t, err, service.ErrAccountNotFound)
		require.Zero(t, e.notifier.count())
	})

	t.Run("email destination delivers a six digit code", func(t *testing.T) {
		require.NoError(t, e.resets.Request(ctx, "alice@example.com"))
		d := e.notifier.last(t)
		require.Equal(t, "alice@example.com", d.destination)
		require.Len(t, d.code, service.ResetCodeDigits)
		for _, r := range d.code {
			require.True(t, r >= '0' && r <= '9')
		}
	})

	t.Run("phone destination also resolves", func(t *testing.T) {
		require.NoError(t, e.resets.Request(ctx, "+6140000alice"))
		require.Equal(t, "+6140000alice", e.notifier.last(t).destination)
	})

	t.Run("delivery failure surfaces but keeps the code live", func(t *testing.T) {
		e.notifier.fail = errors.New("relay down")
		err := e.resets.Request(ctx, "alice@example.com")
		require.ErrorIs(t, err, service.ErrDeliveryFailed)
		e.notifier.fail = nil
	})
}

func TestResetComplete(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.register(t, "bob", "old password")

	require.NoError(t, e.resets.Request(ctx, "bob@example.com"))
	code := e.notifier.last(t).code

	t.Run("weak replacement leaves the code usable", func(t *testing.T) {
		err := e.resets.Complete(ctx, code, "short")
		require.ErrorIs(t, err, service.ErrWeakPassword)
	})

	t.Run("changes the password", func(t *testing.T) {
		require.NoError(t, e.resets.Complete(ctx, code, "new password!"))

		_, err := e.users.VerifyCredentials(ctx, "bob", "old password")
		require.ErrorIs(t, err, service.ErrInvalidCredentials)
		_, err = e.users.VerifyCredentials(ctx, "bob", "new password!")
		require.NoError(t, err)
	})

	t.Run("code is single use", func(t *testing.T) {
		err := e.resets.Complete(ctx, code, "another password")
		require.ErrorIs(t, err, service.ErrInvalidCode)
	})

	t.Run("garbage code", func(t *testing.T) {
		err := e.resets.Complete(ctx, "000000", "another password")
		require.ErrorIs(t, err, service.ErrInvalidCode)
	})
}

func TestResetCompleteExpiredCode(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	id := e.register(t, "carol", "old password")

	code, err := cryptox.GenerateNumericCode(service.ResetCodeDigits)
	require.NoError(t, err)
	require.NoError(t, e.store.ResetCodes().CreateResetCode(ctx, domain.ResetCode{
		ID:          idx.New().String(),
		UserID:      id,
		CodeHash:    cryptox.FingerprintToken(code),
		Destination: "carol@example.com",
		ExpiresAt:   time.Now().Add(-time.Minute),
	}))

	err = e.resets.Complete(ctx, code, "new password!")
	require.ErrorIs(t, err, service.ErrCodeExpired)

	// Old password still works.
	_, err = e.users.VerifyCredentials(ctx, "carol", "old password")
	require.NoError(t, err)
}

func TestResetCompleteConcurrentSingleWinner(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.register(t, "dave", "old password")

	require.NoError(t, e.resets.Request(ctx, "dave@example.com"))
	code := e.notifier.last(t).code

	const racers = 8
	results := make([]error, racers)
	var wg sync.WaitGroup
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = e.resets.Complete(ctx, code, "new password!")
		}()
	}
	wg.Wait()

	var wins int
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		// Losers must see the code as already spent, not a driver error.
		require.ErrorIs(t, err, service.ErrInvalidCode)
	}
	require.Equal(t, 1, wins, "exactly one redeemer must win")
}

func TestResetPeek(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	id := e.register(t, "erin", "old password")

	require.NoError(t, e.resets.Request(ctx, "erin@example.com"))
	code := e.notifier.last(t).code

	subject, err := e.resets.Peek(ctx, code)
	require.NoError(t, err)
	require.Equal(t, id, subject)

	// Peek consumes.
	_, err = e.resets.Peek(ctx, code)
	require.ErrorIs(t, err, service.ErrInvalidCode)
}
