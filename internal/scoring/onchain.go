// Package scoring computes the weighted on-chain composite that the
// pipeline gates on. Components are table-driven: each row carries its
// budget and an evaluator returning 0..100, scaled into the budget at sum
// time. Adding a component is a data edit.
package scoring

import (
	"fmt"
	"sync"

	"github.com/memerun/memerun/internal/domain"
	"github.com/memerun/memerun/internal/safety"
)

// Input carries everything the scorer reads.
type Input struct {
	Metrics  *domain.TokenMetrics
	Safety   domain.SafetyReport
	Bundle   domain.BundleReport
	Momentum domain.MomentumSnapshot
}

// component is one row of the scoring table.
type component struct {
	name      string
	weightMax float64
	eval      func(in Input) float64 // returns 0..100
}

// Scorer computes OnChainScores. The dynamic threshold hook only moves
// the risk-level comparison constants, never the component weights.
type Scorer struct {
	mu            sync.RWMutex
	minSafety     float64
	maxBundleRisk float64

	table []component
}

// NewScorer creates a scorer with default comparison constants.
func NewScorer() *Scorer {
	s := &Scorer{minSafety: 40, maxBundleRisk: 60}
	s.table = []component{
		{"momentum", 30, func(in Input) float64 { return in.Momentum.TotalScore }},
		{"safety", 25, func(in Input) float64 { return float64(in.Safety.SafetyScore) }},
		{"bundle_safety", 20, func(in Input) float64 { return float64(100 - in.Bundle.RiskScore) }},
		{"market_structure", 15, marketStructure},
		{"timing", 10, timing},
	}
	return s
}

// SetDynamicThresholds updates the comparison constants the risk grading
// uses downstream of threshold optimization.
func (s *Scorer) SetDynamicThresholds(minSafety, maxBundleRisk float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minSafety = minSafety
	s.maxBundleRisk = maxBundleRisk
}

// Score computes the composite.
func (s *Scorer) Score(in Input) domain.OnChainScore {
	var out domain.OnChainScore
	raw := make(map[string]float64, len(s.table))

	total := 0.0
	for _, c := range s.table {
		v := clamp(c.eval(in), 0, 100)
		scaled := v * c.weightMax / 100
		raw[c.name] = scaled
		total += scaled
	}

	out.Total = total
	out.Components = domain.ScoreComponents{
		Momentum:        raw["momentum"],
		Safety:          raw["safety"],
		BundleSafety:    raw["bundle_safety"],
		MarketStructure: raw["market_structure"],
		Timing:          raw["timing"],
	}
	out.Recommendation = recommendationFor(total)
	out.RiskLevel = s.riskLevel(in)
	out.Confidence = confidence(in)
	out.BullishSignals, out.BearishSignals, out.Warnings = narrate(in)
	return out
}

func recommendationFor(total float64) domain.Recommendation {
	switch {
	case total >= 75:
		return domain.StrongBuy
	case total >= 60:
		return domain.Buy
	case total >= 40:
		return domain.Watch
	case total >= 25:
		return domain.Avoid
	default:
		return domain.StrongAvoid
	}
}

func (s *Scorer) riskLevel(in Input) domain.RiskLevel {
	s.mu.RLock()
	minSafety, maxBundle := s.minSafety, s.maxBundleRisk
	s.mu.RUnlock()

	honeypot := in.Safety.HasFlag(safety.FlagHoneypotSuspected)
	top10 := 0.0
	if in.Metrics != nil {
		top10 = in.Metrics.Top10Concentration
	}

	switch {
	case in.Safety.SafetyScore < 20 || in.Bundle.RiskScore > 80 || honeypot:
		return domain.RiskCritical
	case float64(in.Safety.SafetyScore) < minSafety || float64(in.Bundle.RiskScore) > maxBundle || top10 > 85:
		return domain.RiskHigh
	case in.Safety.SafetyScore < 60 || in.Bundle.RiskScore > 40 || top10 > 60:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// confidence counts how many inputs carry real (non-default) data.
func confidence(in Input) domain.Confidence {
	sources := 0
	if in.Metrics != nil && in.Metrics.Price > 0 {
		sources++
	}
	if in.Metrics != nil && in.Metrics.HolderChange1h != 0 {
		sources++
	}
	if !in.Safety.HasFlag(domain.FlagDataMissing) {
		sources++
	}
	if len(in.Bundle.Flags) == 0 || in.Bundle.Flags[0] != domain.FlagDataMissing {
		sources++
	}
	switch {
	case sources >= 3:
		return domain.ConfidenceHigh
	case sources == 2:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// marketStructure grades liquidity depth and holder concentration,
// 0..100 before scaling.
func marketStructure(in Input) float64 {
	if in.Metrics == nil {
		return 0
	}
	score := 0.0
	switch {
	case in.Metrics.Liquidity >= 100_000:
		score += 60
	case in.Metrics.Liquidity >= 50_000:
		score += 50
	case in.Metrics.Liquidity >= 20_000:
		score += 40
	case in.Metrics.Liquidity >= 5_000:
		score += 25
	case in.Metrics.Liquidity > 0:
		score += 10
	}

	top10 := in.Metrics.Top10Concentration
	switch {
	case top10 <= 25:
		score += 40
	case top10 <= 40:
		score += 30
	case top10 <= 60:
		score += 18
	case top10 <= 80:
		score += 8
	}
	return score
}

// timing gives tokens in the 2..120 minute window the full boost; very
// new and very old tokens earn less.
func timing(in Input) float64 {
	if in.Metrics == nil {
		return 0
	}
	age := in.Metrics.TokenAgeMinutes
	switch {
	case age < 2:
		return 20
	case age <= 120:
		return 100
	case age <= 360:
		return 70
	case age <= 1440:
		return 40
	default:
		return 20
	}
}

func narrate(in Input) (bullish, bearish, warnings []string) {
	if in.Momentum.TotalScore >= 60 {
		bullish = append(bullish, "strong momentum")
	}
	if in.Momentum.BuySellRatio >= 1.5 {
		bullish = append(bullish, fmt.Sprintf("buy/sell ratio %.1f", in.Momentum.BuySellRatio))
	}
	if in.Safety.SafetyScore >= 70 {
		bullish = append(bullish, "clean contract")
	}

	if in.Momentum.HolderGrowthRate < 0 {
		bearish = append(bearish, "shrinking holder base")
	}
	if in.Bundle.RiskScore > 50 {
		bearish = append(bearish, "elevated bundle risk")
	}

	if in.Safety.HasFlag(domain.FlagDataMissing) {
		warnings = append(warnings, "safety data missing")
	}
	if !in.Safety.MintAuthorityRevoked {
		warnings = append(warnings, "mint authority active")
	}
	if !in.Safety.FreezeAuthorityRevoked {
		warnings = append(warnings, "freeze authority active")
	}
	if in.Metrics != nil && in.Metrics.Top10Concentration > 70 {
		warnings = append(warnings, "concentrated holder base")
	}
	if in.Metrics != nil && in.Metrics.Liquidity < 5_000 {
		warnings = append(warnings, "thin liquidity")
	}
	if in.Bundle.ClusteredWalletCount >= 5 {
		warnings = append(warnings, "clustered early buyers")
	}
	return bullish, bearish, warnings
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
