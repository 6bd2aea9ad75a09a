package momentum

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memerun/memerun/internal/domain"
)

func TestScoreStrongMomentum(t *testing.T) {
	pair := domain.Pair{
		Buys24h:      800,
		Sells24h:     350,
		Buys5m:       40,
		Sells5m:      15,
		Volume24hUSD: 120_000,
		Volume1hUSD:  16_000,
	}
	m := &domain.TokenMetrics{HolderCount: 300, HolderChange1h: 20}

	snap := Score(pair, m)

	require.InDelta(t, 800.0/350.0, snap.BuySellRatio, 0.001)
	require.Equal(t, 40, snap.UniqueBuyers5m)
	require.Greater(t, snap.NetBuyPressureUSD, 0.0)
	// 20% of 300 holders over 60 minutes = 1 holder/min.
	require.InDelta(t, 1.0, snap.HolderGrowthRate, 0.001)
	require.GreaterOrEqual(t, snap.TotalScore, 70.0)
	require.LessOrEqual(t, snap.TotalScore, 100.0)
}

func TestScoreNoTradesIsZero(t *testing.T) {
	snap := Score(domain.Pair{}, &domain.TokenMetrics{})
	require.Zero(t, snap.TotalScore)
}

func TestScoreSellPressureScoresLow(t *testing.T) {
	pair := domain.Pair{
		Buys24h:      100,
		Sells24h:     400,
		Volume24hUSD: 50_000,
		Volume1hUSD:  500,
	}
	snap := Score(pair, &domain.TokenMetrics{HolderCount: 100, HolderChange1h: -5})

	require.Zero(t, snap.Components.BuyPressure)
	require.Zero(t, snap.Components.HolderGrowth)
	require.Less(t, snap.TotalScore, 40.0)
}

func TestComponentsNeverExceedBudget(t *testing.T) {
	pair := domain.Pair{
		Buys24h:      10_000,
		Sells24h:     100,
		Volume24hUSD: 10_000_000,
		Volume1hUSD:  9_000_000,
	}
	snap := Score(pair, &domain.TokenMetrics{HolderCount: 100_000, HolderChange1h: 500})

	require.LessOrEqual(t, snap.Components.BuyPressure, 25.0)
	require.LessOrEqual(t, snap.Components.VolumeVelocity, 25.0)
	require.LessOrEqual(t, snap.Components.TradeQuality, 25.0)
	require.LessOrEqual(t, snap.Components.HolderGrowth, 25.0)
	require.LessOrEqual(t, snap.TotalScore, 100.0)
}
