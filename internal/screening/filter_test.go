package screening

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memerun/memerun/internal/config"
	"github.com/memerun/memerun/internal/domain"
)

func newTestFilter() *Filter {
	return NewFilter(config.Default().Screening)
}

func TestExcludedKnownAddress(t *testing.T) {
	f := newTestFilter()
	excluded, reason := f.Excluded(&domain.TokenMetrics{
		Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Ticker:  "TOTALLYAMEME",
	})
	require.True(t, excluded)
	require.Contains(t, reason, "USDC")
}

func TestExcludedStablecoinTicker(t *testing.T) {
	f := newTestFilter()
	for _, ticker := range []string{"USDT", "usdc", "DAI", "FRAX", "PYUSD"} {
		excluded, _ := f.Excluded(&domain.TokenMetrics{Ticker: ticker})
		require.True(t, excluded, "ticker %s should be excluded", ticker)
	}
}

func TestExcludedWrappedMajors(t *testing.T) {
	f := newTestFilter()
	for _, ticker := range []string{"WSOL", "WETH", "wBTC", "stSOL"} {
		excluded, _ := f.Excluded(&domain.TokenMetrics{Ticker: ticker})
		require.True(t, excluded, "ticker %s should be excluded", ticker)
	}
}

func TestExcludedLPTokenName(t *testing.T) {
	f := newTestFilter()
	excluded, reason := f.Excluded(&domain.TokenMetrics{
		Ticker: "RAY-SOL",
		Name:   "Raydium SOL/USDC LP",
	})
	require.True(t, excluded)
	require.Contains(t, reason, "LP")
}

func TestExcludedDollarPegWithStableName(t *testing.T) {
	f := newTestFilter()

	excluded, _ := f.Excluded(&domain.TokenMetrics{
		Ticker: "XSD", Name: "X Stable Dollar", Price: 1.002,
	})
	require.True(t, excluded)

	// Same price without stable naming passes: plenty of memes trade near $1.
	excluded, _ = f.Excluded(&domain.TokenMetrics{
		Ticker: "DOGE2", Name: "Doge Two", Price: 1.002,
	})
	require.False(t, excluded)
}

func TestExcludedPassesOrdinaryMeme(t *testing.T) {
	f := newTestFilter()
	excluded, reason := f.Excluded(&domain.TokenMetrics{
		Address: "BONKfVdN3XcmVyhwRfmkopXKgvmZippYBUUu1ka9eD2b",
		Ticker:  "BONK",
		Name:    "Bonk",
		Price:   0.000021,
	})
	require.False(t, excluded)
	require.Empty(t, reason)
}

func TestScreenBounds(t *testing.T) {
	f := newTestFilter()

	good := &domain.TokenMetrics{
		MarketCap:          400_000,
		Volume24h:          80_000,
		VolumeMCRatio:      0.2,
		HolderCount:        300,
		Top10Concentration: 40,
		Liquidity:          25_000,
	}
	pass, reason := f.Screen(good)
	require.True(t, pass)
	require.Empty(t, reason)

	cases := []struct {
		name   string
		mutate func(*domain.TokenMetrics)
		want   string
	}{
		{"mcap low", func(m *domain.TokenMetrics) { m.MarketCap = 10_000 }, "market cap"},
		{"mcap high", func(m *domain.TokenMetrics) { m.MarketCap = 200_000_000 }, "market cap"},
		{"volume low", func(m *domain.TokenMetrics) { m.Volume24h = 100 }, "24h volume"},
		{"ratio low", func(m *domain.TokenMetrics) { m.VolumeMCRatio = 0.001 }, "ratio"},
		{"holders low", func(m *domain.TokenMetrics) { m.HolderCount = 5 }, "holder count"},
		{"top10 high", func(m *domain.TokenMetrics) { m.Top10Concentration = 95 }, "top10"},
		{"liquidity low", func(m *domain.TokenMetrics) { m.Liquidity = 500 }, "liquidity"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := *good
			tc.mutate(&m)
			pass, reason := f.Screen(&m)
			require.False(t, pass)
			require.Contains(t, reason, tc.want)
		})
	}
}

func TestMinAgeMinutesExposesConfiguredFloor(t *testing.T) {
	bounds := config.Default().Screening
	bounds.MinTokenAgeMinutes = 15
	f := NewFilter(bounds)
	require.Equal(t, 15.0, f.MinAgeMinutes())

	// Age never appears among the screening reasons.
	young := &domain.TokenMetrics{
		MarketCap: 1_000_000, Volume24h: 50_000, VolumeMCRatio: 0.05,
		HolderCount: 200, Top10Concentration: 40, Liquidity: 25_000,
		TokenAgeMinutes: 1,
	}
	pass, reason := f.Screen(young)
	require.True(t, pass)
	require.Empty(t, reason)
}
