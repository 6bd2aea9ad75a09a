// Package thresholds holds the dynamic gating bounds behind an atomic
// snapshot. Readers take a value copy at pipeline entry; apply swaps a new
// copy in, so an in-flight evaluation never observes a torn update.
package thresholds

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/memerun/memerun/internal/domain"
)

// Persister is the slice of the signal store the threshold machinery needs.
type Persister interface {
	LoadThresholds(ctx context.Context) (*domain.Thresholds, error)
	PersistThresholds(ctx context.Context, t domain.Thresholds) error
	GetRecentSignalsWithOutcomes(ctx context.Context, window time.Duration) ([]domain.SignalRow, error)
}

// Recommendation proposes moving one factor's bound.
type Recommendation struct {
	Factor      string  `json:"factor"`
	Current     float64 `json:"current"`
	Proposed    float64 `json:"proposed"`
	WinRateLow  float64 `json:"win_rate_low"`
	WinRateHigh float64 `json:"win_rate_high"`
	Samples     int     `json:"samples"`
	Reason      string  `json:"reason"`
}

// OptimizationResult is the outcome of one optimizer run.
type OptimizationResult struct {
	Window          time.Duration    `json:"window"`
	SignalsAnalyzed int              `json:"signals_analyzed"`
	Recommendations []Recommendation `json:"recommendations"`
	Applied         bool             `json:"applied"`
}

const (
	optimizeWindow  = 7 * 24 * time.Hour
	minBandSamples  = 5
	minWinRateDelta = 0.15
)

// Store is the process-wide dynamic threshold holder.
type Store struct {
	current atomic.Pointer[domain.Thresholds]
	persist Persister

	mu sync.Mutex // serializes Apply/Optimize writers
}

// NewStore seeds the snapshot from persisted thresholds when available,
// falling back to the given defaults.
func NewStore(ctx context.Context, persist Persister, defaults domain.Thresholds) *Store {
	s := &Store{persist: persist}

	t := defaults
	if persist != nil {
		if loaded, err := persist.LoadThresholds(ctx); err != nil {
			log.Warn().Err(err).Msg("load persisted thresholds failed, using defaults")
		} else if loaded != nil {
			t = *loaded
			t.LearningMode = defaults.LearningMode
		}
	}
	s.current.Store(&t)
	return s
}

// Current returns the snapshot. The returned value is a copy; holding it
// through an evaluation gives a consistent view regardless of concurrent
// applies.
func (s *Store) Current() domain.Thresholds {
	return *s.current.Load()
}

// Apply mutates the stored thresholds per the recommendations, persists,
// and swaps the snapshot. Unknown factor names are skipped with a warning.
func (s *Store) Apply(ctx context.Context, recs []Recommendation) (domain.Thresholds, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.current.Load()
	for _, r := range recs {
		f, ok := factorByName(r.Factor)
		if !ok {
			log.Warn().Str("factor", r.Factor).Msg("unknown threshold factor, skipped")
			continue
		}
		f.set(&next, r.Proposed)
		log.Info().
			Str("factor", r.Factor).
			Float64("from", r.Current).
			Float64("to", r.Proposed).
			Msg("threshold updated")
	}

	if s.persist != nil {
		if err := s.persist.PersistThresholds(ctx, next); err != nil {
			return s.Current(), fmt.Errorf("persist thresholds: %w", err)
		}
	}
	s.current.Store(&next)
	return next, nil
}

// Optimize reads recent outcomes and proposes per-factor moves wherever the
// win rate in the low and high bands of a factor differs materially. With
// applyNow the proposals take effect immediately.
func (s *Store) Optimize(ctx context.Context, applyNow bool) (*OptimizationResult, error) {
	if s.persist == nil {
		return nil, fmt.Errorf("optimize requires a signal store")
	}
	rows, err := s.persist.GetRecentSignalsWithOutcomes(ctx, optimizeWindow)
	if err != nil {
		return nil, fmt.Errorf("read outcomes: %w", err)
	}

	resolved := rows[:0:0]
	for _, r := range rows {
		if r.Outcome != nil {
			resolved = append(resolved, r)
		}
	}

	result := &OptimizationResult{Window: optimizeWindow, SignalsAnalyzed: len(resolved)}
	if len(resolved) < 2*minBandSamples {
		return result, nil
	}

	cur := s.Current()
	for _, f := range factors {
		if rec, ok := analyzeFactor(f, cur, resolved); ok {
			result.Recommendations = append(result.Recommendations, rec)
		}
	}

	if applyNow && len(result.Recommendations) > 0 {
		if _, err := s.Apply(ctx, result.Recommendations); err != nil {
			return result, err
		}
		result.Applied = true
	}
	return result, nil
}

// factor describes one gated quantity: how to read it off a signal row,
// where it lives in Thresholds, and the gate direction.
type factor struct {
	name string
	get  func(domain.SignalRow) float64
	cur  func(domain.Thresholds) float64
	set  func(*domain.Thresholds, float64)
	// minGate true means the threshold is a floor; false, a ceiling.
	minGate bool
}

var factors = []factor{
	{
		name:    "min_momentum_score",
		get:     func(r domain.SignalRow) float64 { return r.Signal.Momentum.TotalScore },
		cur:     func(t domain.Thresholds) float64 { return t.MinMomentumScore },
		set:     func(t *domain.Thresholds, v float64) { t.MinMomentumScore = v },
		minGate: true,
	},
	{
		name:    "min_onchain_score",
		get:     func(r domain.SignalRow) float64 { return r.Signal.OnChainScore.Total },
		cur:     func(t domain.Thresholds) float64 { return t.MinOnChainScore },
		set:     func(t *domain.Thresholds, v float64) { t.MinOnChainScore = v },
		minGate: true,
	},
	{
		name:    "min_safety_score",
		get:     func(r domain.SignalRow) float64 { return float64(r.Signal.Safety.SafetyScore) },
		cur:     func(t domain.Thresholds) float64 { return t.MinSafetyScore },
		set:     func(t *domain.Thresholds, v float64) { t.MinSafetyScore = v },
		minGate: true,
	},
	{
		name:    "max_bundle_risk_score",
		get:     func(r domain.SignalRow) float64 { return float64(r.Signal.Bundle.RiskScore) },
		cur:     func(t domain.Thresholds) float64 { return t.MaxBundleRiskScore },
		set:     func(t *domain.Thresholds, v float64) { t.MaxBundleRiskScore = v },
		minGate: false,
	},
	{
		name:    "min_liquidity",
		get:     func(r domain.SignalRow) float64 { return r.Signal.TokenMetrics.Liquidity },
		cur:     func(t domain.Thresholds) float64 { return t.MinLiquidity },
		set:     func(t *domain.Thresholds, v float64) { t.MinLiquidity = v },
		minGate: true,
	},
	{
		name:    "max_top10_concentration",
		get:     func(r domain.SignalRow) float64 { return r.Signal.TokenMetrics.Top10Concentration },
		cur:     func(t domain.Thresholds) float64 { return t.MaxTop10Concentration },
		set:     func(t *domain.Thresholds, v float64) { t.MaxTop10Concentration = v },
		minGate: false,
	},
}

func factorByName(name string) (factor, bool) {
	for _, f := range factors {
		if f.name == name {
			return f, true
		}
	}
	return factor{}, false
}

// analyzeFactor splits the resolved rows at the factor's median and
// compares win rates. A material gap in the direction the gate can act on
// yields a proposal to move the bound to the median.
func analyzeFactor(f factor, cur domain.Thresholds, rows []domain.SignalRow) (Recommendation, bool) {
	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = f.get(r)
	}
	med := median(values)

	var lowWins, lowTotal, highWins, highTotal int
	for _, r := range rows {
		if f.get(r) < med {
			lowTotal++
			if r.Outcome.Win {
				lowWins++
			}
		} else {
			highTotal++
			if r.Outcome.Win {
				highWins++
			}
		}
	}
	if lowTotal < minBandSamples || highTotal < minBandSamples {
		return Recommendation{}, false
	}

	lowRate := float64(lowWins) / float64(lowTotal)
	highRate := float64(highWins) / float64(highTotal)

	rec := Recommendation{
		Factor:      f.name,
		Current:     f.cur(cur),
		Proposed:    med,
		WinRateLow:  lowRate,
		WinRateHigh: highRate,
		Samples:     len(rows),
	}

	if f.minGate {
		// A floor can only tighten upward: worthwhile when high-band
		// signals win materially more often.
		if highRate-lowRate >= minWinRateDelta && med > rec.Current {
			rec.Reason = fmt.Sprintf("win rate %.0f%% above median vs %.0f%% below", highRate*100, lowRate*100)
			return rec, true
		}
	} else {
		if lowRate-highRate >= minWinRateDelta && med < rec.Current {
			rec.Reason = fmt.Sprintf("win rate %.0f%% below median vs %.0f%% above", lowRate*100, highRate*100)
			return rec, true
		}
	}
	return Recommendation{}, false
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
