package inflight

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConcurrentCallsCoalesceToOneProducer(t *testing.T) {
	reg := NewRegistry()
	var produced int64

	var wg sync.WaitGroup
	results := make([]any, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := reg.Do("holders:X", func() (any, error) {
				atomic.AddInt64(&produced, 1)
				time.Sleep(50 * time.Millisecond)
				return 42, nil
			})
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(1), produced)
	for _, v := range results {
		require.Equal(t, 42, v)
	}
}

func TestEntryRemovedAfterCompletion(t *testing.T) {
	reg := NewRegistry()

	_, _ = reg.Do("k", func() (any, error) { return nil, errors.New("boom") })
	require.Equal(t, 0, reg.Pending())

	// A later call runs the producer again.
	var ran bool
	_, err := reg.Do("k", func() (any, error) { ran = true; return 1, nil })
	require.NoError(t, err)
	require.True(t, ran)
}

func TestFailuresPropagateToAllWaiters(t *testing.T) {
	reg := NewRegistry()
	sentinel := errors.New("upstream 500")

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = reg.Do("k", func() (any, error) {
				time.Sleep(20 * time.Millisecond)
				return nil, sentinel
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.ErrorIs(t, err, sentinel)
	}
}
