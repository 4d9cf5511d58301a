package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/paynet-bridge/internal/resilience"
)

func TestBreakerTransitions(t *testing.T) {
	breaker := resilience.NewBreaker(2, 0.5, 50*time.Millisecond)
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	require.False(t, breaker.Allow(ctx), "breaker should open after threshold exceeded")

	time.Sleep(60 * time.Millisecond)
	require.True(t, breaker.Allow(ctx), "breaker should move to half-open after cool off")
	breaker.Report(ctx, true)
	require.True(t, breaker.Allow(ctx), "breaker should close after successful probe")
}

func TestBackoffWithJitter(t *testing.T) {
	base := 100 * time.Millisecond
	d1 := resilience.Backoff(base, 1, 0)
	require.Equal(t, base, d1)

	d2 := resilience.Backoff(base, 3, 0)
	require.Equal(t, base*4, d2)

	// With jitter the delay should stay within expected range.
	d3 := resilience.Backoff(base, 2, 0.2)
	min := base*2 - (base * 2 / 5)
	max := base*2 + (base * 2 / 5)
	require.GreaterOrEqual(t, d3, min)
	require.LessOrEqual(t, d3, max)
}

func TestCappedBackoffRespectsLimit(t *testing.T) {
	base := time.Second
	require.Equal(t, 8*time.Second, resilience.CappedBackoff(base, 4, 0, time.Minute))
	require.Equal(t, time.Minute, resilience.CappedBackoff(base, 40, 0, time.Minute))

	d := resilience.CappedBackoff(base, 40, 0.1, time.Minute)
	require.GreaterOrEqual(t, d, 54*time.Second)
	require.LessOrEqual(t, d, 66*time.Second)
}

func TestBreakerStateAccessor(t *testing.T) {
	breaker := resilience.NewBreaker(1, 0.5, time.Minute)
	ctx := context.Background()
	require.Equal(t, resilience.Closed, breaker.State())
	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
}

func TestBreakerHalfOpenAdmitsSingleProbe(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	breaker := resilience.NewBreaker(1, 0.5, time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()

	breaker.Report(ctx, false)
	require.False(t, breaker.Allow(ctx))

	now = now.Add(time.Minute)
	require.True(t, breaker.Allow(ctx), "first request after cool-off is the probe")
	require.False(t, breaker.Allow(ctx), "second request waits for the probe")
	require.Equal(t, resilience.HalfOpen, breaker.State())

	breaker.Abandon()
	require.True(t, breaker.Allow(ctx), "abandoned probe frees the slot")
	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
}

func TestBreakerWindowForgetsOldFailures(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	breaker := resilience.NewBreaker(3, 0.5, time.Second).
		WithWindow(10 * time.Second).
		WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	now = now.Add(11 * time.Second)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.Equal(t, resilience.Closed, breaker.State(), "failures from the previous window do not count")
}
