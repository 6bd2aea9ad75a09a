package tiers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memerun/memerun/internal/config"
	"github.com/memerun/memerun/internal/domain"
)

func TestTierBoundaryGrid(t *testing.T) {
	caps := []float64{
		49_999, 50_000, 499_999, 500_000, 7_999_999, 8_000_000,
		19_999_999, 20_000_000, 49_999_999, 50_000_000, 149_999_999, 150_000_000,
	}
	want := []domain.Tier{
		domain.TierUnknown, domain.TierMicro, domain.TierMicro,
		domain.TierRising, domain.TierRising, domain.TierEmerging,
		domain.TierEmerging, domain.TierGraduated, domain.TierGraduated,
		domain.TierEstablished, domain.TierEstablished, domain.TierUnknown,
	}
	for i, mc := range caps {
		require.Equal(t, want[i], domain.TierFor(mc), "marketCap %v", mc)
	}
}

func TestGateUnknownTierBlocked(t *testing.T) {
	c := NewClassifier(nil)
	ok, reason := c.Gate(domain.TierUnknown, &domain.TokenMetrics{Liquidity: 1_000_000}, 100)
	require.False(t, ok)
	require.Contains(t, reason, "disabled")
}

func TestGateFloors(t *testing.T) {
	c := NewClassifier(nil)

	ok, _ := c.Gate(domain.TierRising, &domain.TokenMetrics{Liquidity: 30_000}, 60)
	require.True(t, ok)

	ok, reason := c.Gate(domain.TierRising, &domain.TokenMetrics{Liquidity: 10_000}, 60)
	require.False(t, ok)
	require.Contains(t, reason, "liquidity")

	ok, reason = c.Gate(domain.TierRising, &domain.TokenMetrics{Liquidity: 30_000}, 40)
	require.False(t, ok)
	require.Contains(t, reason, "safety")
}

func TestGateConfigOverrides(t *testing.T) {
	disabled := false
	minLiq := 1_000.0
	c := NewClassifier(map[string]config.TierOverride{
		"EMERGING": {Enabled: &disabled},
		"MICRO":    {MinLiquidity: &minLiq},
		"BOGUS":    {Enabled: &disabled},
	})

	ok, _ := c.Gate(domain.TierEmerging, &domain.TokenMetrics{Liquidity: 1_000_000}, 100)
	require.False(t, ok)

	ok, _ = c.Gate(domain.TierMicro, &domain.TokenMetrics{Liquidity: 2_000}, 70)
	require.True(t, ok)
}

func TestSizerScalesAndCaps(t *testing.T) {
	c := NewClassifier(nil)
	s := NewSizer(0.5, c)

	// RISING multiplier 1.0, quality 1.0 band.
	require.InDelta(t, 0.5, s.Size(domain.TierRising, 65), 0.001)
	// Strong signal bumps by 1.5x.
	require.InDelta(t, 0.75, s.Size(domain.TierRising, 90), 0.001)
	// Weak signal shrinks.
	require.InDelta(t, 0.375, s.Size(domain.TierRising, 50), 0.001)
	// Disabled tier sizes to zero.
	require.Zero(t, s.Size(domain.TierUnknown, 90))
}

func TestSizerRespectsTierCap(t *testing.T) {
	c := NewClassifier(nil)
	s := NewSizer(3.0, c)

	// MICRO: 3.0 × 0.5 × 1.5 = 2.25, capped to 0.5.
	require.InDelta(t, 0.5, s.Size(domain.TierMicro, 90), 0.001)
}
