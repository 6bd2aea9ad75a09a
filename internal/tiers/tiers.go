// Package tiers gates candidates by market-cap band and scales the
// advisory position size. Each band carries its own liquidity and safety
// floors; config can override any row.
package tiers

import (
	"fmt"

	"github.com/memerun/memerun/internal/config"
	"github.com/memerun/memerun/internal/domain"
)

// Gate is one tier's admission row.
type Gate struct {
	Enabled            bool
	MinLiquidity       float64
	MinSafetyScore     float64
	PositionMultiplier float64
	MaxPosition        float64 // cap in base units
}

// defaultGates: smaller caps demand cleaner contracts and get smaller
// positions; the mid bands are the sweet spot.
func defaultGates() map[domain.Tier]Gate {
	return map[domain.Tier]Gate{
		domain.TierMicro:       {Enabled: true, MinLiquidity: 5_000, MinSafetyScore: 60, PositionMultiplier: 0.5, MaxPosition: 0.5},
		domain.TierRising:      {Enabled: true, MinLiquidity: 10_000, MinSafetyScore: 50, PositionMultiplier: 1.0, MaxPosition: 1.5},
		domain.TierEmerging:    {Enabled: true, MinLiquidity: 50_000, MinSafetyScore: 45, PositionMultiplier: 1.25, MaxPosition: 2.0},
		domain.TierGraduated:   {Enabled: true, MinLiquidity: 100_000, MinSafetyScore: 40, PositionMultiplier: 1.0, MaxPosition: 2.0},
		domain.TierEstablished: {Enabled: true, MinLiquidity: 200_000, MinSafetyScore: 35, PositionMultiplier: 0.75, MaxPosition: 1.5},
		domain.TierUnknown:     {Enabled: false},
	}
}

// Classifier maps candidates to tiers and applies the per-tier gate.
type Classifier struct {
	gates map[domain.Tier]Gate
}

// NewClassifier builds the gate table with config overrides applied.
// Unknown tier names in the config are ignored.
func NewClassifier(overrides map[string]config.TierOverride) *Classifier {
	gates := defaultGates()
	for name, ov := range overrides {
		tier := domain.Tier(name)
		g, ok := gates[tier]
		if !ok {
			continue
		}
		if ov.Enabled != nil {
			g.Enabled = *ov.Enabled
		}
		if ov.MinLiquidity != nil {
			g.MinLiquidity = *ov.MinLiquidity
		}
		if ov.MinSafetyScore != nil {
			g.MinSafetyScore = *ov.MinSafetyScore
		}
		if ov.PositionMultiplier != nil {
			g.PositionMultiplier = *ov.PositionMultiplier
		}
		gates[tier] = g
	}
	return &Classifier{gates: gates}
}

// Classify returns the tier for the fused metrics.
func (c *Classifier) Classify(m *domain.TokenMetrics) domain.Tier {
	return domain.TierFor(m.MarketCap)
}

// Gate checks the tier's admission row. A disabled tier or a failed floor
// blocks, with a reason for diagnostics.
func (c *Classifier) Gate(tier domain.Tier, m *domain.TokenMetrics, safetyScore int) (bool, string) {
	g := c.gates[tier]
	if !g.Enabled {
		return false, fmt.Sprintf("tier %s disabled", tier)
	}
	if m.Liquidity < g.MinLiquidity {
		return false, fmt.Sprintf("tier %s liquidity %.0f below floor %.0f", tier, m.Liquidity, g.MinLiquidity)
	}
	if float64(safetyScore) < g.MinSafetyScore {
		return false, fmt.Sprintf("tier %s safety %d below floor %.0f", tier, safetyScore, g.MinSafetyScore)
	}
	return true, ""
}

// Sizer computes the advisory position size. No trade is ever placed.
type Sizer struct {
	base  float64
	gates map[domain.Tier]Gate
}

// NewSizer creates a sizer sharing the classifier's gate table.
func NewSizer(base float64, c *Classifier) *Sizer {
	return &Sizer{base: base, gates: c.gates}
}

// Size returns base × tier multiplier × quality multiplier, capped at the
// tier's maximum. signalStrength is the adjusted composite total.
func (s *Sizer) Size(tier domain.Tier, signalStrength float64) float64 {
	g := s.gates[tier]
	if !g.Enabled {
		return 0
	}
	size := s.base * g.PositionMultiplier * qualityMultiplier(signalStrength)
	if g.MaxPosition > 0 && size > g.MaxPosition {
		size = g.MaxPosition
	}
	return size
}

func qualityMultiplier(strength float64) float64 {
	switch {
	case strength >= 85:
		return 1.5
	case strength >= 75:
		return 1.25
	case strength >= 60:
		return 1.0
	default:
		return 0.75
	}
}
