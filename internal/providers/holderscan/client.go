// Package holderscan is the paid holder-count provider. Unlike the chain
// RPC path its totals are authoritative, not pagination floors, and the
// client keeps a short in-memory history per token so the facade can derive
// a one-hour holder change.
package holderscan

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/memerun/memerun/internal/data/cache"
	"github.com/memerun/memerun/internal/data/inflight"
	"github.com/memerun/memerun/internal/domain"
	"github.com/memerun/memerun/internal/infrastructure/httpclient"
	"github.com/memerun/memerun/internal/net/ratelimit"
)

const (
	holdersTTL = 60 * time.Second
	pageSize   = 50
)

// Config holds holder API client configuration.
type Config struct {
	BaseURL     string
	APIKey      string
	MinInterval time.Duration
}

// Client is the Provider C authoritative holder client.
type Client struct {
	config    Config
	pool      *httpclient.Pool
	limiter   ratelimit.Limiter
	cache     *cache.TTLCache
	inflight  *inflight.Registry
	snapshots *SnapshotStore
}

// NewClient creates the holder API client.
func NewClient(config Config) *Client {
	if config.MinInterval == 0 {
		config.MinInterval = 500 * time.Millisecond
	}
	return &Client{
		config: config,
		pool: httpclient.New(httpclient.Config{
			Name:           "holderscan",
			RequestTimeout: 15 * time.Second,
		}),
		limiter:   ratelimit.NewMinInterval("holderscan", config.MinInterval),
		cache:     cache.New(500, 2*time.Minute),
		inflight:  inflight.NewRegistry(),
		snapshots: NewSnapshotStore(2 * time.Hour),
	}
}

// Enabled reports whether the client has credentials to operate.
func (c *Client) Enabled() bool { return c.config.APIKey != "" }

// BreakerState exposes the transport circuit state for the health report.
func (c *Client) BreakerState() string { return c.pool.BreakerState() }

// CacheStats exposes cache counters for the health report.
func (c *Client) CacheStats() cache.Stats { return c.cache.Stats() }

// PoolStats exposes transport counters for metrics export.
func (c *Client) PoolStats() httpclient.Stats { return c.pool.GetStats() }

type holdersDTO struct {
	Total   int `json:"total"`
	Holders []struct {
		Address string  `json:"address"`
		Amount  float64 `json:"amount"`
		Rank    int     `json:"rank"`
		Percent float64 `json:"percentage"`
	} `json:"holders"`
}

// GetTokenHolders returns the authoritative holder total and top holders,
// cached for sixty seconds. Every successful fetch appends a snapshot to
// the token's history.
func (c *Client) GetTokenHolders(ctx context.Context, addr domain.TokenAddress) (*domain.HolderPage, error) {
	key := "holders:" + addr.String()
	if v, ok := c.cache.Get(key); ok {
		return v.(*domain.HolderPage), nil
	}

	v, err := c.inflight.Do(key, func() (any, error) {
		page, err := c.fetchHolders(ctx, addr)
		if err != nil {
			log.Debug().Err(err).Str("token", addr.Short()).Msg("holderscan fetch failed")
			return nil, err
		}

		c.snapshots.Append(addr, page.Total, time.Now())
		c.cache.Set(key, page, holdersTTL)
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.HolderPage), nil
}

func (c *Client) fetchHolders(ctx context.Context, addr domain.TokenAddress) (*domain.HolderPage, error) {
	endpoint := fmt.Sprintf("%s/token/holders?address=%s&page=1&page_size=%d",
		c.config.BaseURL, url.QueryEscape(addr.String()), pageSize)
	headers := map[string]string{"token": c.config.APIKey}

	for attempt := 0; attempt < 2; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}

		var dto holdersDTO
		err := c.pool.GetJSON(ctx, endpoint, headers, &dto)
		if errors.Is(err, httpclient.ErrRateLimited) {
			c.limiter.ReportRejected()
			continue
		}
		if err != nil {
			return nil, err
		}
		c.limiter.ReportSuccess()

		top := make([]domain.Holder, 0, len(dto.Holders))
		for _, h := range dto.Holders {
			top = append(top, domain.Holder{Owner: h.Address, Amount: h.Amount, Percent: h.Percent})
		}
		return &domain.HolderPage{Total: dto.Total, TopHolders: top}, nil
	}
	return nil, httpclient.ErrRateLimited
}

// DeriveHolderChange1h computes the signed percent change in holder count
// over the last hour from the snapshot history.
func (c *Client) DeriveHolderChange1h(addr domain.TokenAddress, current int) float64 {
	return c.snapshots.Change1h(addr, current, time.Now())
}
