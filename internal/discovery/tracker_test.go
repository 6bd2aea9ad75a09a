package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/memerun/memerun/internal/domain"
)

const addr = domain.TokenAddress("So11111111111111111111111111111111111111112")

func trackerAt(start time.Time) (*Tracker, *time.Time) {
	now := start
	t := NewTracker()
	t.now = func() time.Time { return now }
	return t, &now
}

func TestObserveAndSeen(t *testing.T) {
	tr, _ := trackerAt(time.Now())
	require.False(t, tr.Seen(addr))

	tr.Observe(addr)
	require.True(t, tr.Seen(addr))
	require.Equal(t, 1, tr.Len())
}

func TestReobserveKeepsFirstSeen(t *testing.T) {
	start := time.Now()
	tr, now := trackerAt(start)

	tr.Observe(addr)
	*now = start.Add(3 * time.Hour)
	tr.Observe(addr)

	first, ok := tr.FirstSeenAt(addr)
	require.True(t, ok)
	require.Equal(t, start, first)
}

func TestExpiryBeforeSweep(t *testing.T) {
	start := time.Now()
	tr, now := trackerAt(start)
	tr.Observe(addr)

	*now = start.Add(24*time.Hour + time.Minute)
	require.False(t, tr.Seen(addr))
	require.Equal(t, 1, tr.Len()) // still resident until swept
}

func TestSweepRemovesExpired(t *testing.T) {
	start := time.Now()
	tr, now := trackerAt(start)

	tr.Observe(addr)
	*now = start.Add(20 * time.Hour)
	tr.Observe("fresh11111111111111111111111111111111111111")

	*now = start.Add(25 * time.Hour)
	require.Equal(t, 1, tr.Sweep())
	require.Equal(t, 1, tr.Len())
	require.True(t, tr.Seen("fresh11111111111111111111111111111111111111"))
}

func TestForget(t *testing.T) {
	tr, _ := trackerAt(time.Now())
	tr.Observe(addr)
	tr.Forget(addr)
	require.False(t, tr.Seen(addr))
}
