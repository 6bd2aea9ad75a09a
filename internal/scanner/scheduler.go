package scanner

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/memerun/memerun/internal/discovery"
	"github.com/memerun/memerun/internal/domain"
	"github.com/memerun/memerun/internal/metrics"
	"github.com/memerun/memerun/internal/providers/chainrpc"
)

// CycleStats counts one cycle's outcomes. Incremented in candidate-arrival
// order and logged exactly once per cycle.
type CycleStats struct {
	Candidates int
	Verdicts   map[domain.Verdict]int
	Signals    int
	Swept      int
	Elapsed    time.Duration
}

func newCycleStats() *CycleStats {
	return &CycleStats{Verdicts: make(map[domain.Verdict]int)}
}

func (s *CycleStats) record(v domain.Verdict) {
	s.Verdicts[v]++
	if v == domain.VerdictOnChainSignalSent {
		s.Signals++
	}
}

// ProviderProbe exposes one provider's cumulative counters for metrics
// export. Either func may be nil.
type ProviderProbe struct {
	Name    string
	Errors  func() int64 // cumulative transport failures
	Entries func() int   // resident cache entries
}

// Scheduler runs the periodic scan loop. At most one cycle is in progress
// at a time: the next is scheduled only after the current one completes.
type Scheduler struct {
	interval  time.Duration
	feed      *Feed
	pipeline  *Pipeline
	discovery *discovery.Tracker
	metrics   *metrics.Metrics
	listings  <-chan chainrpc.ListingEvent

	probes     []ProviderProbe
	lastErrors map[string]int64
}

// NewScheduler wires the scan loop. listings may be nil when the chain RPC
// stream is disabled.
func NewScheduler(interval time.Duration, feed *Feed, pipeline *Pipeline,
	tracker *discovery.Tracker, m *metrics.Metrics, listings <-chan chainrpc.ListingEvent,
	probes ...ProviderProbe) *Scheduler {
	return &Scheduler{
		interval:   interval,
		feed:       feed,
		pipeline:   pipeline,
		discovery:  tracker,
		metrics:    m,
		listings:   listings,
		probes:     probes,
		lastErrors: make(map[string]int64),
	}
}

// Run loops until the context is cancelled. Cycles start every interval;
// only the time the cycle left over is slept, and an overrunning cycle is
// followed immediately by the next. The in-flight cycle finishes its
// current candidate before honoring cancellation.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Msg("scan loop started")
	for {
		start := time.Now()
		s.RunCycle(ctx)

		select {
		case <-ctx.Done():
			log.Info().Msg("scan loop stopped")
			return
		case <-time.After(nextWait(s.interval, time.Since(start))):
		}
	}
}

// nextWait is the sleep needed to keep cycle starts interval apart.
func nextWait(interval, elapsed time.Duration) time.Duration {
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}

// RunCycle executes one full scan cycle and returns its counters.
func (s *Scheduler) RunCycle(ctx context.Context) *CycleStats {
	start := time.Now()
	stats := newCycleStats()

	s.drainListings()

	candidates := s.feed.Candidates(ctx)
	stats.Candidates = len(candidates)

	for _, addr := range candidates {
		if ctx.Err() != nil {
			break
		}
		verdict := s.pipeline.Evaluate(ctx, addr)
		stats.record(verdict)
		if s.metrics != nil {
			s.metrics.VerdictsTotal.WithLabelValues(string(verdict)).Inc()
		}
	}

	stats.Swept = s.discovery.Sweep()
	stats.Elapsed = time.Since(start)

	if s.metrics != nil {
		s.metrics.CyclesTotal.Inc()
		s.metrics.CycleDuration.Observe(stats.Elapsed.Seconds())
		s.metrics.CandidatesTotal.Add(float64(stats.Candidates))
		s.metrics.DiscoverySize.Set(float64(s.discovery.Len()))
		s.exportProbes()
	}

	ev := log.Info().
		Int("candidates", stats.Candidates).
		Int("signals", stats.Signals).
		Int("discovery_swept", stats.Swept).
		Dur("elapsed", stats.Elapsed)
	for verdict, n := range stats.Verdicts {
		ev = ev.Int(string(verdict), n)
	}
	ev.Msg("scan cycle complete")

	return stats
}

// exportProbes publishes per-provider failure deltas and cache sizes once
// per cycle.
func (s *Scheduler) exportProbes() {
	for _, pr := range s.probes {
		if pr.Errors != nil {
			cur := pr.Errors()
			if d := cur - s.lastErrors[pr.Name]; d > 0 {
				s.metrics.ProviderErrors.WithLabelValues(pr.Name).Add(float64(d))
			}
			s.lastErrors[pr.Name] = cur
		}
		if pr.Entries != nil {
			s.metrics.CacheEntries.WithLabelValues(pr.Name).Set(float64(pr.Entries()))
		}
	}
}

// drainListings moves any buffered stream events into the feed without
// blocking.
func (s *Scheduler) drainListings() {
	if s.listings == nil {
		return
	}
	for {
		select {
		case ev, ok := <-s.listings:
			if !ok {
				s.listings = nil
				return
			}
			s.feed.Push(ev.Token)
		default:
			return
		}
	}
}
