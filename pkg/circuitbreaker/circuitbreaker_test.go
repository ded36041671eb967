package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("nats: no servers available")

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func fail(context.Context) error { return errDown }
func pass(context.Context) error { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	var transitions []string
	clk := &clock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	cb := New("nats",
		WithFailureThreshold(2),
		WithTimeout(time.Minute),
		WithClock(clk.Now),
		WithOnStateChange(func(_ string, from, to State) {
			transitions = append(transitions, from.String()+">"+to.String())
		}),
	)
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())

	calls := 0
	err := cb.Execute(ctx, func(context.Context) error { calls++; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsRejected(err))
	assert.Zero(t, calls)

	clk.now = clk.now.Add(time.Minute)
	require.NoError(t, cb.Execute(ctx, pass))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, pass))
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []string{"closed>open", "open>half-open", "half-open>closed"}, transitions)
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	clk := &clock{now: time.Unix(0, 0)}
	cb := New("redis", WithFailureThreshold(1), WithTimeout(time.Second), WithClock(clk.Now))
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clk.now = clk.now.Add(time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, pass), ErrCircuitOpen)
}

func TestBreaker_CancellationIsNotAFailure(t *testing.T) {
	cb := New("nats", WithFailureThreshold(1))
	err := cb.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Counts().TotalSuccesses)
}

func TestBreaker_Fallback(t *testing.T) {
	cb := New("redis", WithFailureThreshold(1))
	_ = cb.Execute(context.Background(), fail)

	err := cb.ExecuteWithFallback(context.Background(), pass, func(err error) error {
		assert.ErrorIs(t, err, ErrCircuitOpen)
		return nil
	})
	assert.NoError(t, err)

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Zero(t, cb.Counts().Requests)
}

func TestPresets(t *testing.T) {
	assert.Equal(t, "nats", BrokerBreaker(nil).Name())
	assert.Equal(t, "redis", CacheBreaker(nil).Name())
}
