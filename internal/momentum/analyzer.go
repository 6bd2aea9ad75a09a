// Package momentum scores short-horizon trading pressure from pair trade
// counts and holder growth. Four components of 0..25 sum to the 0..100
// momentum total.
package momentum

import (
	"context"

	"github.com/memerun/memerun/internal/domain"
)

// PairSource provides pair snapshots.
type PairSource interface {
	GetTokenPairs(ctx context.Context, addr domain.TokenAddress) ([]domain.Pair, error)
}

// Analyzer computes MomentumSnapshots.
type Analyzer struct {
	pairs PairSource
}

// NewAnalyzer creates a momentum analyzer.
func NewAnalyzer(pairs PairSource) *Analyzer {
	return &Analyzer{pairs: pairs}
}

// Analyze fetches the primary pair and scores momentum. Without pair data
// the snapshot is zero-valued: no momentum evidence, no momentum score.
func (a *Analyzer) Analyze(ctx context.Context, addr domain.TokenAddress, m *domain.TokenMetrics) domain.MomentumSnapshot {
	pairs, err := a.pairs.GetTokenPairs(ctx, addr)
	if err != nil || len(pairs) == 0 {
		return domain.MomentumSnapshot{}
	}

	primary := pairs[0]
	for _, p := range pairs[1:] {
		if p.LiquidityUSD > primary.LiquidityUSD {
			primary = p
		}
	}
	return Score(primary, m)
}

// Score computes the snapshot from a single pair and the fused metrics.
func Score(p domain.Pair, m *domain.TokenMetrics) domain.MomentumSnapshot {
	snap := domain.MomentumSnapshot{
		UniqueBuyers5m: p.Buys5m,
	}

	trades := p.Buys24h + p.Sells24h
	if p.Sells24h > 0 {
		snap.BuySellRatio = float64(p.Buys24h) / float64(p.Sells24h)
	} else if p.Buys24h > 0 {
		snap.BuySellRatio = float64(p.Buys24h)
	}
	if trades > 0 {
		snap.NetBuyPressureUSD = p.Volume24hUSD * float64(p.Buys24h-p.Sells24h) / float64(trades)
	}

	// Holders per minute, derived from the 1h percent change.
	if m != nil && m.HolderCount > 0 {
		snap.HolderGrowthRate = m.HolderChange1h / 100 * float64(m.HolderCount) / 60
	}

	snap.Components = domain.MomentumComponents{
		BuyPressure:    buyPressureScore(snap.BuySellRatio, trades),
		VolumeVelocity: velocityScore(p),
		TradeQuality:   tradeQualityScore(p, trades),
		HolderGrowth:   holderGrowthScore(snap.HolderGrowthRate),
	}
	snap.TotalScore = snap.Components.BuyPressure +
		snap.Components.VolumeVelocity +
		snap.Components.TradeQuality +
		snap.Components.HolderGrowth
	return snap
}

func buyPressureScore(ratio float64, trades int) float64 {
	if trades < 10 {
		return 0 // too few trades to read pressure
	}
	switch {
	case ratio >= 2.0:
		return 25
	case ratio >= 1.5:
		return 19
	case ratio >= 1.2:
		return 14
	case ratio >= 1.0:
		return 10
	case ratio >= 0.8:
		return 5
	default:
		return 0
	}
}

// velocityScore compares the last hour's volume to a uniform 1/24 share of
// the day.
func velocityScore(p domain.Pair) float64 {
	if p.Volume24hUSD <= 0 {
		return 0
	}
	velocity := p.Volume1hUSD / (p.Volume24hUSD / 24)
	switch {
	case velocity >= 4:
		return 25
	case velocity >= 2.5:
		return 19
	case velocity >= 1.5:
		return 14
	case velocity >= 1.0:
		return 9
	case velocity > 0:
		return 4
	default:
		return 0
	}
}

// tradeQualityScore rewards a retail-shaped average trade size.
func tradeQualityScore(p domain.Pair, trades int) float64 {
	if trades == 0 {
		return 0
	}
	avg := p.Volume24hUSD / float64(trades)
	switch {
	case avg >= 20 && avg <= 1000:
		return 25
	case avg > 1000 && avg <= 3000:
		return 15
	case avg >= 5 && avg < 20:
		return 12
	default:
		return 3
	}
}

func holderGrowthScore(perMinute float64) float64 {
	switch {
	case perMinute >= 1.0:
		return 25
	case perMinute >= 0.3:
		return 19
	case perMinute >= 0.05:
		return 13
	case perMinute > 0:
		return 7
	default:
		return 0
	}
}
