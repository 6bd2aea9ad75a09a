package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	maxBackoff  = 5 * time.Second
	logInterval = 60 * time.Second
)

// Limiter gates outbound provider calls. Acquire blocks until the caller is
// permitted to proceed; ReportRejected extends an additive backoff that is
// applied to subsequent waits and decays again on success.
type Limiter interface {
	Acquire(ctx context.Context) error
	ReportRejected()
	ReportSuccess()
	CooldownUntil(t time.Time)
}

// backoffState is the shared 429 bookkeeping for both limiter variants.
// Backoff doubles on rejection up to maxBackoff and halves on success.
type backoffState struct {
	name          string
	backoff       time.Duration
	cooldownUntil time.Time
	hits          int64
	lastLogged    time.Time
}

func (b *backoffState) rejected() {
	if b.backoff == 0 {
		b.backoff = 500 * time.Millisecond
	} else {
		b.backoff *= 2
	}
	if b.backoff > maxBackoff {
		b.backoff = maxBackoff
	}
	b.hits++

	// At most one rate-limit log per minute per limiter.
	now := time.Now()
	if now.Sub(b.lastLogged) >= logInterval {
		log.Warn().
			Str("limiter", b.name).
			Int64("hits", b.hits).
			Dur("backoff", b.backoff).
			Msg("Rate limit hit, backing off")
		b.lastLogged = now
		b.hits = 0
	}
}

func (b *backoffState) succeeded() {
	b.backoff /= 2
	if b.backoff < 10*time.Millisecond {
		b.backoff = 0
	}
}

// extraWait returns how long an Acquire must add on top of its own pacing.
func (b *backoffState) extraWait(now time.Time) time.Duration {
	wait := b.backoff
	if until := b.cooldownUntil.Sub(now); until > wait {
		wait = until
	}
	return wait
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TokenBucket is the heavier-provider variant: at most rps acquires in any
// sliding one-second window, implemented on golang.org/x/time/rate.
type TokenBucket struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	state   backoffState
}

// NewTokenBucket creates a token-bucket limiter permitting rps requests per
// second with a burst of one (strict pacing).
func NewTokenBucket(name string, rps float64) *TokenBucket {
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		state:   backoffState{name: name},
	}
}

// Acquire blocks until a permit is available and any backoff has elapsed.
func (t *TokenBucket) Acquire(ctx context.Context) error {
	t.mu.Lock()
	extra := t.state.extraWait(time.Now())
	t.mu.Unlock()

	if err := sleepCtx(ctx, extra); err != nil {
		return err
	}
	return t.limiter.Wait(ctx)
}

// ReportRejected records a 429-equivalent rejection.
func (t *TokenBucket) ReportRejected() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.rejected()
}

// ReportSuccess decays the backoff toward zero.
func (t *TokenBucket) ReportSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.succeeded()
}

// CooldownUntil forces all acquires to wait until at least the given moment.
func (t *TokenBucket) CooldownUntil(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.cooldownUntil = at
}

// MinInterval is the lighter-provider variant: consecutive acquires are at
// least interval apart.
type MinInterval struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	state    backoffState
}

// NewMinInterval creates a min-interval limiter.
func NewMinInterval(name string, interval time.Duration) *MinInterval {
	return &MinInterval{
		interval: interval,
		state:    backoffState{name: name},
	}
}

// Acquire blocks until at least the configured interval has elapsed since
// the previous acquire, plus any active backoff or cooldown.
func (m *MinInterval) Acquire(ctx context.Context) error {
	m.mu.Lock()
	now := time.Now()
	wait := m.state.extraWait(now)
	if !m.last.IsZero() {
		if since := now.Sub(m.last); since < m.interval {
			wait += m.interval - since
		}
	}
	// Reserve the slot before sleeping so concurrent acquirers queue up
	// behind each other rather than stampeding on wake.
	m.last = now.Add(wait)
	m.mu.Unlock()

	return sleepCtx(ctx, wait)
}

// ReportRejected records a 429-equivalent rejection.
func (m *MinInterval) ReportRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.rejected()
}

// ReportSuccess decays the backoff toward zero.
func (m *MinInterval) ReportSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.succeeded()
}

// CooldownUntil forces all acquires to wait until at least the given moment.
func (m *MinInterval) CooldownUntil(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.cooldownUntil = at
}
