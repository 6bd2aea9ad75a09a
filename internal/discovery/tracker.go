// Package discovery tracks tokens that drew preliminary interest without
// converting to a signal, so a later validation can promote them instead of
// re-treating them as unseen.
package discovery

import (
	"sync"
	"time"

	"github.com/memerun/memerun/internal/domain"
)

const defaultExpiry = 24 * time.Hour

// Tracker is a keyed set with per-entry 24h expiry. Safe for concurrent
// use.
type Tracker struct {
	mu        sync.RWMutex
	firstSeen map[domain.TokenAddress]time.Time
	expiry    time.Duration
	now       func() time.Time
}

// NewTracker creates a tracker with the default 24h expiry.
func NewTracker() *Tracker {
	return &Tracker{
		firstSeen: make(map[domain.TokenAddress]time.Time),
		expiry:    defaultExpiry,
		now:       time.Now,
	}
}

// Observe records a token's first sighting. Re-observing keeps the
// original firstSeenAt so expiry is measured from genuine first contact.
func (t *Tracker) Observe(addr domain.TokenAddress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.firstSeen[addr]; !ok {
		t.firstSeen[addr] = t.now()
	}
}

// Seen reports whether the token is currently tracked. An expired entry
// reads as unseen even before the sweeper removes it.
func (t *Tracker) Seen(addr domain.TokenAddress) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	first, ok := t.firstSeen[addr]
	return ok && t.now().Sub(first) < t.expiry
}

// FirstSeenAt returns when the token was first observed.
func (t *Tracker) FirstSeenAt(addr domain.TokenAddress) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	first, ok := t.firstSeen[addr]
	return first, ok
}

// Forget drops a token, typically after it converts to a full signal.
func (t *Tracker) Forget(addr domain.TokenAddress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.firstSeen, addr)
}

// Sweep removes expired entries and returns how many were dropped. The
// scheduler calls this once per cycle.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-t.expiry)
	removed := 0
	for addr, first := range t.firstSeen {
		if first.Before(cutoff) {
			delete(t.firstSeen, addr)
			removed++
		}
	}
	return removed
}

// Len returns the current tracked count, expired entries included until
// the next sweep.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.firstSeen)
}
