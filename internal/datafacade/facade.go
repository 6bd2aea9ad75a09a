// Package datafacade fuses the provider clients into the uniform per-token
// view the pipeline consumes. Provider calls fan out in parallel with
// all-settled semantics: a failed source contributes its empty value and
// the composer runs once every sub-task has finished.
package datafacade

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/memerun/memerun/internal/domain"
)

// Conservative defaults used when a source contributed nothing.
const (
	defaultHolderCount = 25
	defaultTop10Pct    = 50.0
	defaultAgeMinutes  = 5.0
)

// PairSource is the market aggregator surface the facade consumes.
type PairSource interface {
	GetTokenPairs(ctx context.Context, addr domain.TokenAddress) ([]domain.Pair, error)
	GetTokenInfo(ctx context.Context, addr domain.TokenAddress) (*domain.TokenInfo, error)
}

// ChainSource is the chain RPC surface the facade consumes.
type ChainSource interface {
	Enabled() bool
	GetTokenMintInfo(ctx context.Context, addr domain.TokenAddress) (*domain.MintInfo, error)
	GetTokenHolders(ctx context.Context, addr domain.TokenAddress) (*domain.HolderPage, error)
}

// HolderSource is the authoritative holder-count surface.
type HolderSource interface {
	Enabled() bool
	GetTokenHolders(ctx context.Context, addr domain.TokenAddress) (*domain.HolderPage, error)
	DeriveHolderChange1h(addr domain.TokenAddress, current int) float64
}

// Facade composes provider data into TokenMetrics and the contract-level
// analyses. Process-wide singleton, immutable after construction.
type Facade struct {
	pairs   PairSource
	chain   ChainSource
	holders HolderSource
}

// New creates the acquisition facade.
func New(pairs PairSource, chain ChainSource, holders HolderSource) *Facade {
	return &Facade{pairs: pairs, chain: chain, holders: holders}
}

// GetTokenMetrics fans out to the pair and holder sources and composes the
// fused snapshot. Returns nil when no source returned any data.
func (f *Facade) GetTokenMetrics(ctx context.Context, addr domain.TokenAddress) *domain.TokenMetrics {
	var (
		wg         sync.WaitGroup
		pairs      []domain.Pair
		holderPage *domain.HolderPage
		holderAuth bool
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		got, err := f.pairs.GetTokenPairs(ctx, addr)
		if err == nil {
			pairs = got
		}
	}()
	go func() {
		defer wg.Done()
		// Prefer the authoritative source; fall back to chain RPC floors.
		if f.holders != nil && f.holders.Enabled() {
			if page, err := f.holders.GetTokenHolders(ctx, addr); err == nil {
				holderPage, holderAuth = page, true
				return
			}
		}
		if f.chain != nil && f.chain.Enabled() {
			if page, err := f.chain.GetTokenHolders(ctx, addr); err == nil {
				holderPage = page
			}
		}
	}()
	wg.Wait()

	if len(pairs) == 0 && holderPage == nil {
		return nil
	}

	m := &domain.TokenMetrics{
		Address:            addr,
		Ticker:             "UNKNOWN",
		Name:               "UNKNOWN",
		HolderCount:        defaultHolderCount,
		Top10Concentration: defaultTop10Pct,
		TokenAgeMinutes:    defaultAgeMinutes,
		LPLocked:           domain.Unknown,
		FetchedAt:          time.Now(),
	}

	if len(pairs) > 0 {
		primary := primaryPair(pairs)
		if primary.BaseTicker != "" {
			m.Ticker = primary.BaseTicker
		}
		if primary.BaseName != "" {
			m.Name = primary.BaseName
		}
		m.Price = primary.PriceUSD
		m.MarketCap = primary.MarketCapUSD
		m.Volume24h = primary.Volume24hUSD
		m.Liquidity = primary.LiquidityUSD
		if m.MarketCap > 0 {
			m.VolumeMCRatio = m.Volume24h / m.MarketCap
		}
		if !primary.PairCreatedAt.IsZero() && primary.PairCreatedAt.Unix() > 0 {
			m.TokenAgeMinutes = time.Since(primary.PairCreatedAt).Minutes()
			if m.TokenAgeMinutes < 0 {
				m.TokenAgeMinutes = 0
			}
		}
	}

	if holderPage != nil {
		if holderPage.Total > 0 {
			m.HolderCount = holderPage.Total
		}
		if top10 := sumTop10(holderPage.TopHolders); top10 > 0 {
			m.Top10Concentration = top10
		}
		if holderAuth {
			m.HolderChange1h = f.holders.DeriveHolderChange1h(addr, holderPage.Total)
		}
	}

	return m
}

// AnalyzeTokenContract derives the authority-level safety facts from the
// mint account. Missing data never blocks: the permissive report carries
// the data_missing flag instead.
func (f *Facade) AnalyzeTokenContract(ctx context.Context, addr domain.TokenAddress) domain.SafetyReport {
	if f.chain == nil || !f.chain.Enabled() {
		return domain.PermissiveSafetyReport()
	}

	mint, err := f.chain.GetTokenMintInfo(ctx, addr)
	if err != nil || mint == nil {
		log.Debug().Str("token", addr.Short()).Msg("mint info unavailable, permissive safety defaults")
		return domain.PermissiveSafetyReport()
	}

	report := domain.SafetyReport{
		MintAuthorityRevoked:   mint.MintAuthority == "",
		FreezeAuthorityRevoked: mint.FreezeAuthority == "",
		// The parsed account path does not expose metadata mutability;
		// always false until a richer metadata source is wired.
		MetadataMutable: false,
	}

	if page, err := f.chain.GetTokenHolders(ctx, addr); err == nil && page != nil {
		report.Top10Concentration = sumTop10(page.TopHolders)
		if len(page.TopHolders) > 0 {
			report.DeployerHoldingPct = page.TopHolders[0].Percent
		}
	}
	return report
}

// AnalyzeVolumeAuthenticity scores how organic a token's reported volume
// looks, 0..100 (higher is more authentic).
func (f *Facade) AnalyzeVolumeAuthenticity(ctx context.Context, addr domain.TokenAddress) int {
	pairs, err := f.pairs.GetTokenPairs(ctx, addr)
	if err != nil || len(pairs) == 0 {
		return 50 // neutral when unobservable
	}
	p := primaryPair(pairs)

	score := 100
	trades := p.Buys24h + p.Sells24h
	if trades == 0 {
		return 20
	}

	// Perfectly balanced buy/sell counts are a wash-trading tell.
	balance := float64(p.Buys24h) / float64(trades)
	if balance > 0.48 && balance < 0.52 && trades > 200 {
		score -= 30
	}

	// Average trade size far outside the retail band.
	avgTrade := p.Volume24hUSD / float64(trades)
	if avgTrade > 5000 {
		score -= 25
	} else if avgTrade < 5 {
		score -= 15
	}

	// An hourly share far above 1/24 of daily volume means a burst, not a
	// day of organic trading.
	if p.Volume24hUSD > 0 && p.Volume1hUSD/p.Volume24hUSD > 0.5 {
		score -= 20
	}

	// Unique-wallet proxy: trades per holder-ish heuristic. Below 0.3
	// wallets per trade suggests a small circle recycling volume.
	if proxy := uniqueWalletProxy(p); proxy < 0.3 {
		score -= 30
	}

	if score < 0 {
		score = 0
	}
	return score
}

// uniqueWalletProxy estimates wallet diversity from the 5m/24h trade
// shape: 5 minutes is ~0.35% of a day, so a large 5m share of daily trades
// implies a small circle of wallets cycling. Result is clamped to [0,1],
// 1 meaning diverse.
func uniqueWalletProxy(p domain.Pair) float64 {
	trades24 := p.Buys24h + p.Sells24h
	trades5m := p.Buys5m + p.Sells5m
	if trades24 == 0 {
		return 1
	}
	share := float64(trades5m) / float64(trades24)
	proxy := 1 - share/0.2
	if proxy < 0 {
		proxy = 0
	}
	return proxy
}

func primaryPair(pairs []domain.Pair) domain.Pair {
	best := pairs[0]
	for _, p := range pairs[1:] {
		if p.LiquidityUSD > best.LiquidityUSD {
			best = p
		}
	}
	return best
}

func sumTop10(holders []domain.Holder) float64 {
	sum := 0.0
	for i, h := range holders {
		if i >= 10 {
			break
		}
		sum += h.Percent
	}
	return sum
}
