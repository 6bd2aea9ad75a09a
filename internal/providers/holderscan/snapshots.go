package holderscan

import (
	"sync"
	"time"

	"github.com/memerun/memerun/internal/domain"
)

// extrapolationCap bounds how far a short history may be scaled toward a
// one-hour rate. Empirical; tunable if it proves too aggressive.
const extrapolationCap = 3.0

// Snapshot is one observed holder count.
type Snapshot struct {
	HolderCount int
	Timestamp   time.Time
}

// SnapshotStore keeps a bounded per-token holder-count history. Writes are
// append-mostly; a per-token lock keeps it cheap under scan bursts.
type SnapshotStore struct {
	mu      sync.Mutex
	byToken map[domain.TokenAddress]*tokenHistory
	maxAge  time.Duration
}

type tokenHistory struct {
	mu   sync.Mutex
	snap []Snapshot
}

// NewSnapshotStore creates a store retaining maxAge of history per token.
func NewSnapshotStore(maxAge time.Duration) *SnapshotStore {
	return &SnapshotStore{
		byToken: make(map[domain.TokenAddress]*tokenHistory),
		maxAge:  maxAge,
	}
}

func (s *SnapshotStore) history(addr domain.TokenAddress) *tokenHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.byToken[addr]
	if !ok {
		h = &tokenHistory{}
		s.byToken[addr] = h
	}
	return h
}

// Append records an observation and trims entries older than maxAge.
func (s *SnapshotStore) Append(addr domain.TokenAddress, count int, at time.Time) {
	h := s.history(addr)
	h.mu.Lock()
	defer h.mu.Unlock()

	h.snap = append(h.snap, Snapshot{HolderCount: count, Timestamp: at})

	cutoff := at.Add(-s.maxAge)
	i := 0
	for i < len(h.snap) && h.snap[i].Timestamp.Before(cutoff) {
		i++
	}
	h.snap = h.snap[i:]
}

// Change1h returns the percent holder change over the last hour. It picks
// the snapshot closest to one hour old when one exists in the [30,90]
// minute band; otherwise it scales the oldest available delta to a
// one-hour rate, capped at 3x extrapolation. Histories shorter than five
// minutes return 0.
func (s *SnapshotStore) Change1h(addr domain.TokenAddress, current int, now time.Time) float64 {
	h := s.history(addr)
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.snap) == 0 {
		return 0
	}
	oldest := h.snap[0]
	if now.Sub(oldest.Timestamp) < 5*time.Minute {
		return 0
	}

	target := now.Add(-time.Hour)
	var best *Snapshot
	var bestDist time.Duration
	for i := range h.snap {
		age := now.Sub(h.snap[i].Timestamp)
		if age < 30*time.Minute || age > 90*time.Minute {
			continue
		}
		dist := h.snap[i].Timestamp.Sub(target)
		if dist < 0 {
			dist = -dist
		}
		if best == nil || dist < bestDist {
			best = &h.snap[i]
			bestDist = dist
		}
	}

	if best != nil {
		return percentChange(best.HolderCount, current)
	}

	// No snapshot near the hour mark: scale the oldest delta to a 1h rate.
	age := now.Sub(oldest.Timestamp)
	scale := float64(time.Hour) / float64(age)
	if scale > extrapolationCap {
		scale = extrapolationCap
	}
	return percentChange(oldest.HolderCount, current) * scale
}

func percentChange(from, to int) float64 {
	if from <= 0 {
		return 0
	}
	return float64(to-from) / float64(from) * 100
}
