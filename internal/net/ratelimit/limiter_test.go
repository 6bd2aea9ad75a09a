package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenBucketPacesAcquires(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	limiter := NewTokenBucket("test", 5)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 15; i++ {
		require.NoError(t, limiter.Acquire(ctx))
	}
	elapsed := time.Since(start)

	// 15 acquires at 5/s with burst 1: at least 14 inter-permit gaps.
	require.GreaterOrEqual(t, elapsed, 2500*time.Millisecond)
	require.LessOrEqual(t, elapsed, 4*time.Second)
}

func TestTokenBucketBackoffDoublesAndCaps(t *testing.T) {
	limiter := NewTokenBucket("test", 100)

	for i := 0; i < 10; i++ {
		limiter.ReportRejected()
	}
	require.Equal(t, maxBackoff, limiter.state.backoff)

	for i := 0; i < 20; i++ {
		limiter.ReportSuccess()
	}
	require.Equal(t, time.Duration(0), limiter.state.backoff)
}

func TestMinIntervalSpacing(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	limiter := NewMinInterval("test", 50*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Acquire(ctx))
	}
	require.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestAcquireHonorsCancellation(t *testing.T) {
	limiter := NewMinInterval("test", time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, limiter.Acquire(ctx))
	cancel()
	require.ErrorIs(t, limiter.Acquire(ctx), context.Canceled)
}

func TestCooldownDelaysAcquire(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	limiter := NewMinInterval("test", time.Millisecond)
	limiter.CooldownUntil(time.Now().Add(100 * time.Millisecond))

	start := time.Now()
	require.NoError(t, limiter.Acquire(context.Background()))
	require.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
