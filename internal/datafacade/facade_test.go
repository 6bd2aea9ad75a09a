package datafacade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/memerun/memerun/internal/domain"
)

const testAddr = domain.TokenAddress("So11111111111111111111111111111111111111112")

type mockPairs struct {
	pairs []domain.Pair
	info  *domain.TokenInfo
	err   error
}

func (m *mockPairs) GetTokenPairs(ctx context.Context, addr domain.TokenAddress) ([]domain.Pair, error) {
	return m.pairs, m.err
}

func (m *mockPairs) GetTokenInfo(ctx context.Context, addr domain.TokenAddress) (*domain.TokenInfo, error) {
	return m.info, m.err
}

type mockChain struct {
	enabled bool
	mint    *domain.MintInfo
	holders *domain.HolderPage
	err     error
}

func (m *mockChain) Enabled() bool { return m.enabled }

func (m *mockChain) GetTokenMintInfo(ctx context.Context, addr domain.TokenAddress) (*domain.MintInfo, error) {
	return m.mint, m.err
}

func (m *mockChain) GetTokenHolders(ctx context.Context, addr domain.TokenAddress) (*domain.HolderPage, error) {
	return m.holders, m.err
}

type mockHolders struct {
	enabled  bool
	page     *domain.HolderPage
	change1h float64
	err      error
}

func (m *mockHolders) Enabled() bool { return m.enabled }

func (m *mockHolders) GetTokenHolders(ctx context.Context, addr domain.TokenAddress) (*domain.HolderPage, error) {
	return m.page, m.err
}

func (m *mockHolders) DeriveHolderChange1h(addr domain.TokenAddress, current int) float64 {
	return m.change1h
}

func pairFixture() domain.Pair {
	return domain.Pair{
		ChainID:       "solana",
		BaseAddress:   testAddr,
		BaseTicker:    "MEME",
		BaseName:      "Meme Coin",
		PriceUSD:      0.002,
		LiquidityUSD:  30_000,
		MarketCapUSD:  2_000_000,
		Volume24hUSD:  80_000,
		Buys24h:       600,
		Sells24h:      400,
		PairCreatedAt: time.Now().Add(-20 * time.Minute),
	}
}

func TestGetTokenMetricsComposesAllSources(t *testing.T) {
	f := New(
		&mockPairs{pairs: []domain.Pair{pairFixture()}},
		&mockChain{enabled: true},
		&mockHolders{
			enabled: true,
			page: &domain.HolderPage{
				Total: 120,
				TopHolders: []domain.Holder{
					{Owner: "a", Percent: 15}, {Owner: "b", Percent: 10}, {Owner: "c", Percent: 15},
				},
			},
			change1h: 15,
		},
	)

	m := f.GetTokenMetrics(context.Background(), testAddr)
	require.NotNil(t, m)
	require.Equal(t, "MEME", m.Ticker)
	require.Equal(t, float64(2_000_000), m.MarketCap)
	require.Equal(t, 120, m.HolderCount)
	require.InDelta(t, 40.0, m.Top10Concentration, 0.001)
	require.InDelta(t, 15.0, m.HolderChange1h, 0.001)
	require.InDelta(t, 20.0, m.TokenAgeMinutes, 1.0)
	require.InDelta(t, 0.04, m.VolumeMCRatio, 0.001)
}

func TestGetTokenMetricsFallsBackToChainHolders(t *testing.T) {
	f := New(
		&mockPairs{pairs: []domain.Pair{pairFixture()}},
		&mockChain{enabled: true, holders: &domain.HolderPage{Total: 80, TotalIsCap: true}},
		&mockHolders{enabled: true, err: errors.New("402 payment required")},
	)

	m := f.GetTokenMetrics(context.Background(), testAddr)
	require.NotNil(t, m)
	require.Equal(t, 80, m.HolderCount)
	// Change derivation needs the authoritative source.
	require.Zero(t, m.HolderChange1h)
}

func TestGetTokenMetricsNilWhenAllSourcesEmpty(t *testing.T) {
	f := New(
		&mockPairs{err: errors.New("timeout")},
		&mockChain{enabled: true, err: errors.New("500")},
		&mockHolders{enabled: false},
	)
	require.Nil(t, f.GetTokenMetrics(context.Background(), testAddr))
}

func TestGetTokenMetricsDefaultsWhenHoldersMissing(t *testing.T) {
	f := New(
		&mockPairs{pairs: []domain.Pair{pairFixture()}},
		&mockChain{enabled: false},
		&mockHolders{enabled: false},
	)

	m := f.GetTokenMetrics(context.Background(), testAddr)
	require.NotNil(t, m)
	require.Equal(t, defaultHolderCount, m.HolderCount)
	require.Equal(t, defaultTop10Pct, m.Top10Concentration)
}

func TestAnalyzeTokenContractPermissiveWhenRPCDisabled(t *testing.T) {
	f := New(&mockPairs{}, &mockChain{enabled: false}, &mockHolders{})

	report := f.AnalyzeTokenContract(context.Background(), testAddr)
	require.True(t, report.MintAuthorityRevoked)
	require.True(t, report.FreezeAuthorityRevoked)
	require.True(t, report.HasFlag(domain.FlagDataMissing))
}

func TestAnalyzeTokenContractReadsAuthorities(t *testing.T) {
	f := New(&mockPairs{}, &mockChain{
		enabled: true,
		mint:    &domain.MintInfo{MintAuthority: "", FreezeAuthority: "someauthority", Decimals: 9},
	}, &mockHolders{})

	report := f.AnalyzeTokenContract(context.Background(), testAddr)
	require.True(t, report.MintAuthorityRevoked)
	require.False(t, report.FreezeAuthorityRevoked)
	require.False(t, report.HasFlag(domain.FlagDataMissing))
}

func TestAnalyzeVolumeAuthenticityNeutralWithoutPairs(t *testing.T) {
	f := New(&mockPairs{err: errors.New("down")}, &mockChain{}, &mockHolders{})
	require.Equal(t, 50, f.AnalyzeVolumeAuthenticity(context.Background(), testAddr))
}
