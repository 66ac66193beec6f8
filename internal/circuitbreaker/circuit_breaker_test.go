package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("dependency down")

func newTestBreaker(failures int, coolDown time.Duration) *CircuitBreaker {
	return New(&Config{
		Name:                   "test",
		MaxConsecutiveFailures: failures,
		CoolDown:               coolDown,
		HalfOpenProbes:         1,
	})
}

func TestBreaker_StaysClosedOnSuccess(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		err := cb.Execute(ctx, func(context.Context) error { return nil })
		require.NoError(t, err)
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := cb.Execute(ctx, func(context.Context) error { return errDown })
		assert.ErrorIs(t, err, errDown)
	}
	assert.Equal(t, StateOpen, cb.State())

	// Open circuit rejects without calling the dependency.
	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = cb.Execute(ctx, func(context.Context) error { return errDown })
		_ = cb.Execute(ctx, func(context.Context) error { return nil })
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cb := newTestBreaker(1, 10*time.Millisecond)
	ctx := context.Background()

	_ = cb.Execute(ctx, func(context.Context) error { return errDown })
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	// First call after the cool-down is a probe; success closes the circuit.
	err := cb.Execute(ctx, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	cb := newTestBreaker(1, 10*time.Millisecond)
	ctx := context.Background()

	_ = cb.Execute(ctx, func(context.Context) error { return errDown })
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	err := cb.Execute(ctx, func(context.Context) error { return errDown })
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, StateOpen, cb.State())
}
