// Package dexscreener is the free market-aggregator client: pair
// snapshots, new-pair and trending discovery, and token profile lookups,
// all filtered client-side to the target chain.
package dexscreener

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/memerun/memerun/internal/data/cache"
	"github.com/memerun/memerun/internal/data/inflight"
	"github.com/memerun/memerun/internal/domain"
	"github.com/memerun/memerun/internal/infrastructure/httpclient"
	"github.com/memerun/memerun/internal/net/ratelimit"
)

const (
	pairsTTL      = 30 * time.Second
	pairsEmptyTTL = 10 * time.Second
	infoTTL       = 5 * time.Minute
	rawTTL        = 10 * time.Second
)

// Config holds aggregator client configuration. No API key: the public
// tier is rate-limit-only.
type Config struct {
	BaseURL     string
	ChainID     string
	MinInterval time.Duration
	// SharedCache holds raw responses; Redis-backed when configured so
	// multiple engine processes split one public-API budget.
	SharedCache cache.Bytes
}

// Client is the Provider B market aggregator client.
type Client struct {
	config   Config
	pool     *httpclient.Pool
	limiter  ratelimit.Limiter
	cache    *cache.TTLCache
	raw      cache.Bytes
	inflight *inflight.Registry
}

// NewClient creates the aggregator client.
func NewClient(config Config) *Client {
	if config.MinInterval == 0 {
		config.MinInterval = 300 * time.Millisecond
	}
	if config.ChainID == "" {
		config.ChainID = "solana"
	}
	raw := config.SharedCache
	if raw == nil {
		raw = cache.NewBytes()
	}
	return &Client{
		config: config,
		pool: httpclient.New(httpclient.Config{
			Name:           "dexscreener",
			RequestTimeout: 10 * time.Second,
		}),
		limiter:  ratelimit.NewMinInterval("dexscreener", config.MinInterval),
		cache:    cache.New(1000, 3*time.Minute),
		raw:      raw,
		inflight: inflight.NewRegistry(),
	}
}

// BreakerState exposes the transport circuit state for the health report.
func (c *Client) BreakerState() string { return c.pool.BreakerState() }

// CacheStats exposes cache counters for the health report.
func (c *Client) CacheStats() cache.Stats { return c.cache.Stats() }

// PoolStats exposes transport counters for metrics export.
func (c *Client) PoolStats() httpclient.Stats { return c.pool.GetStats() }

// getJSON performs one rate-limited GET with a single 429 re-queue. Raw
// responses are kept briefly in the shared cache so the discovery
// endpoints, polled by several call sites per cycle, cost one request.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if b, ok := c.raw.GetBytes(path); ok {
		return json.Unmarshal(b, out)
	}

	for attempt := 0; attempt < 2; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}
		body, err := c.pool.Get(ctx, c.config.BaseURL+path, nil)
		if errors.Is(err, httpclient.ErrRateLimited) {
			c.limiter.ReportRejected()
			continue
		}
		if err != nil {
			return err
		}
		c.limiter.ReportSuccess()
		c.raw.SetBytes(path, body, rawTTL)
		return json.Unmarshal(body, out)
	}
	return httpclient.ErrRateLimited
}

type pairDTO struct {
	ChainID     string `json:"chainId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
		Name    string `json:"name"`
	} `json:"baseToken"`
	PriceUSD  string `json:"priceUsd"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	MarketCap float64 `json:"marketCap"`
	FDV       float64 `json:"fdv"`
	Volume    struct {
		H24 float64 `json:"h24"`
		H1  float64 `json:"h1"`
	} `json:"volume"`
	Txns struct {
		H24 struct {
			Buys  int `json:"buys"`
			Sells int `json:"sells"`
		} `json:"h24"`
		M5 struct {
			Buys  int `json:"buys"`
			Sells int `json:"sells"`
		} `json:"m5"`
	} `json:"txns"`
	PairCreatedAt int64 `json:"pairCreatedAt"` // unix millis
}

func (d pairDTO) toDomain() domain.Pair {
	price, _ := strconv.ParseFloat(d.PriceUSD, 64)
	mc := d.MarketCap
	if mc == 0 {
		mc = d.FDV
	}
	return domain.Pair{
		ChainID:       d.ChainID,
		PairAddress:   d.PairAddress,
		BaseAddress:   domain.TokenAddress(d.BaseToken.Address),
		BaseTicker:    d.BaseToken.Symbol,
		BaseName:      d.BaseToken.Name,
		PriceUSD:      price,
		LiquidityUSD:  d.Liquidity.USD,
		MarketCapUSD:  mc,
		Volume24hUSD:  d.Volume.H24,
		Volume1hUSD:   d.Volume.H1,
		Buys24h:       d.Txns.H24.Buys,
		Sells24h:      d.Txns.H24.Sells,
		Buys5m:        d.Txns.M5.Buys,
		Sells5m:       d.Txns.M5.Sells,
		PairCreatedAt: time.UnixMilli(d.PairCreatedAt),
	}
}

// GetTokenPairs returns the token's pairs on the target chain, sorted by
// liquidity. Empty results are cached with a shorter TTL so unlisted
// tokens do not hammer the API every cycle.
func (c *Client) GetTokenPairs(ctx context.Context, addr domain.TokenAddress) ([]domain.Pair, error) {
	key := "pairs:" + addr.String()
	if v, ok := c.cache.Get(key); ok {
		return v.([]domain.Pair), nil
	}

	v, err := c.inflight.Do(key, func() (any, error) {
		var res struct {
			Pairs []pairDTO `json:"pairs"`
		}
		if err := c.getJSON(ctx, "/latest/dex/tokens/"+addr.String(), &res); err != nil {
			log.Debug().Err(err).Str("token", addr.Short()).Msg("pair lookup failed")
			return nil, err
		}

		pairs := c.filterChain(res.Pairs)
		ttl := pairsTTL
		if len(pairs) == 0 {
			ttl = pairsEmptyTTL
		}
		c.cache.Set(key, pairs, ttl)
		return pairs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Pair), nil
}

// GetNewPairs returns recently created pairs, newest first. The profile
// endpoint is primary; the search endpoint is the fallback when it fails.
func (c *Client) GetNewPairs(ctx context.Context, limit int) ([]domain.Pair, error) {
	pairs, err := c.newPairsFromProfiles(ctx, limit)
	if err == nil && len(pairs) > 0 {
		return pairs, nil
	}
	if err != nil {
		log.Debug().Err(err).Msg("profile endpoint failed, falling back to search")
	}
	return c.pairsFromSearch(ctx, limit)
}

func (c *Client) newPairsFromProfiles(ctx context.Context, limit int) ([]domain.Pair, error) {
	var profiles []struct {
		ChainID      string `json:"chainId"`
		TokenAddress string `json:"tokenAddress"`
	}
	if err := c.getJSON(ctx, "/token-profiles/latest/v1", &profiles); err != nil {
		return nil, err
	}

	pairs := make([]domain.Pair, 0, limit)
	for _, p := range profiles {
		if p.ChainID != c.config.ChainID {
			continue
		}
		pairs = append(pairs, domain.Pair{
			ChainID:     p.ChainID,
			BaseAddress: domain.TokenAddress(p.TokenAddress),
		})
		if len(pairs) >= limit {
			break
		}
	}
	return pairs, nil
}

func (c *Client) pairsFromSearch(ctx context.Context, limit int) ([]domain.Pair, error) {
	var res struct {
		Pairs []pairDTO `json:"pairs"`
	}
	if err := c.getJSON(ctx, "/latest/dex/search?q="+c.config.ChainID, &res); err != nil {
		return nil, err
	}

	pairs := c.filterChain(res.Pairs)
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs, nil
}

// GetTrending returns boosted token addresses, the aggregator's closest
// public proxy for trending, falling back to the search endpoint.
func (c *Client) GetTrending(ctx context.Context, limit int) ([]domain.TokenAddress, error) {
	var boosts []struct {
		ChainID      string `json:"chainId"`
		TokenAddress string `json:"tokenAddress"`
	}
	if err := c.getJSON(ctx, "/token-boosts/latest/v1", &boosts); err != nil {
		log.Debug().Err(err).Msg("boost endpoint failed, falling back to search")
		pairs, err := c.pairsFromSearch(ctx, limit)
		if err != nil {
			return nil, err
		}
		addrs := make([]domain.TokenAddress, 0, len(pairs))
		for _, p := range pairs {
			addrs = append(addrs, p.BaseAddress)
		}
		return addrs, nil
	}

	addrs := make([]domain.TokenAddress, 0, limit)
	for _, b := range boosts {
		if b.ChainID != c.config.ChainID {
			continue
		}
		addrs = append(addrs, domain.TokenAddress(b.TokenAddress))
		if len(addrs) >= limit {
			break
		}
	}
	return addrs, nil
}

// GetTokenInfo returns the profile/boost view used by the social bonus and
// the scam filter. Cached: profiles change slowly.
func (c *Client) GetTokenInfo(ctx context.Context, addr domain.TokenAddress) (*domain.TokenInfo, error) {
	key := "info:" + addr.String()
	if v, ok := c.cache.Get(key); ok {
		return v.(*domain.TokenInfo), nil
	}

	v, err := c.inflight.Do(key, func() (any, error) {
		var profiles []struct {
			ChainID      string `json:"chainId"`
			TokenAddress string `json:"tokenAddress"`
			Description  string `json:"description"`
			Links        []struct {
				Type string `json:"type"`
				URL  string `json:"url"`
			} `json:"links"`
		}
		if err := c.getJSON(ctx, "/token-profiles/latest/v1", &profiles); err != nil {
			log.Debug().Err(err).Str("token", addr.Short()).Msg("token info fetch failed")
			return nil, err
		}

		info := &domain.TokenInfo{}
		for _, p := range profiles {
			if p.TokenAddress != addr.String() || p.ChainID != c.config.ChainID {
				continue
			}
			info.HasPaidProfile = true
			info.Description = p.Description
			for _, l := range p.Links {
				switch strings.ToLower(l.Type) {
				case "twitter":
					info.Twitter = l.URL
				case "telegram":
					info.Telegram = l.URL
				case "discord":
					info.Discord = l.URL
				case "website":
					info.Website = l.URL
				}
			}
			break
		}
		info.BoostCount = c.boostCount(ctx, addr)

		c.cache.Set(key, info, infoTTL)
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.TokenInfo), nil
}

func (c *Client) boostCount(ctx context.Context, addr domain.TokenAddress) int {
	var boosts []struct {
		TokenAddress string  `json:"tokenAddress"`
		TotalAmount  float64 `json:"totalAmount"`
	}
	if err := c.getJSON(ctx, "/token-boosts/latest/v1", &boosts); err != nil {
		return 0
	}
	for _, b := range boosts {
		if b.TokenAddress == addr.String() {
			return int(b.TotalAmount)
		}
	}
	return 0
}

func (c *Client) filterChain(dtos []pairDTO) []domain.Pair {
	pairs := make([]domain.Pair, 0, len(dtos))
	for _, d := range dtos {
		if d.ChainID != c.config.ChainID {
			continue
		}
		pairs = append(pairs, d.toDomain())
	}
	return pairs
}
