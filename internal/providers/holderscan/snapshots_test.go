package holderscan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/memerun/memerun/internal/domain"
)

const addr = domain.TokenAddress("So11111111111111111111111111111111111111112")

func TestChange1hRequiresFiveMinutesOfHistory(t *testing.T) {
	s := NewSnapshotStore(2 * time.Hour)
	now := time.Now()

	s.Append(addr, 100, now.Add(-3*time.Minute))
	require.Zero(t, s.Change1h(addr, 150, now))
}

func TestChange1hUsesSnapshotNearHourMark(t *testing.T) {
	s := NewSnapshotStore(2 * time.Hour)
	now := time.Now()

	s.Append(addr, 100, now.Add(-100*time.Minute)) // outside band
	s.Append(addr, 200, now.Add(-62*time.Minute))  // closest to 1h
	s.Append(addr, 300, now.Add(-35*time.Minute))  // in band but further

	// 200 -> 250 over ~1h = +25%.
	require.InDelta(t, 25.0, s.Change1h(addr, 250, now), 0.001)
}

func TestChange1hExtrapolatesShortHistoryWithCap(t *testing.T) {
	s := NewSnapshotStore(2 * time.Hour)
	now := time.Now()

	// Only 10 minutes of history: raw scale would be 6x, capped at 3x.
	s.Append(addr, 100, now.Add(-10*time.Minute))

	// 100 -> 110 is +10%; capped scale gives +30%.
	require.InDelta(t, 30.0, s.Change1h(addr, 110, now), 0.001)
}

func TestChange1hScalesWithinCap(t *testing.T) {
	s := NewSnapshotStore(2 * time.Hour)
	now := time.Now()

	// 29 minutes of history: just below the [30,90] band, scale 60/29 < cap.
	s.Append(addr, 100, now.Add(-29*time.Minute))

	// +10% over 29 min, scaled by 60/29 ≈ 2.069.
	require.InDelta(t, 10.0*60.0/29.0, s.Change1h(addr, 110, now), 0.01)
}

func TestAppendTrimsOldEntries(t *testing.T) {
	s := NewSnapshotStore(time.Hour)
	now := time.Now()

	s.Append(addr, 50, now.Add(-2*time.Hour))
	s.Append(addr, 100, now)

	h := s.history(addr)
	require.Len(t, h.snap, 1)
	require.Equal(t, 100, h.snap[0].HolderCount)
}
