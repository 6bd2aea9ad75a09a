// Package directory is the token directory client used by the candidate
// feed: verified tokens (long cache) and recently listed tokens.
package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/memerun/memerun/internal/data/cache"
	"github.com/memerun/memerun/internal/data/inflight"
	"github.com/memerun/memerun/internal/domain"
	"github.com/memerun/memerun/internal/infrastructure/httpclient"
	"github.com/memerun/memerun/internal/net/ratelimit"
)

const verifiedTTL = 10 * time.Minute

// Config holds directory client configuration.
type Config struct {
	BaseURL     string
	APIKey      string
	MinInterval time.Duration
}

// Client is the Provider D token directory client.
type Client struct {
	config   Config
	pool     *httpclient.Pool
	limiter  ratelimit.Limiter
	cache    *cache.TTLCache
	inflight *inflight.Registry
}

// NewClient creates the directory client.
func NewClient(config Config) *Client {
	if config.MinInterval == 0 {
		config.MinInterval = 250 * time.Millisecond
	}
	return &Client{
		config: config,
		pool: httpclient.New(httpclient.Config{
			Name:           "directory",
			RequestTimeout: 10 * time.Second,
		}),
		limiter:  ratelimit.NewMinInterval("directory", config.MinInterval),
		cache:    cache.New(500, 5*time.Minute),
		inflight: inflight.NewRegistry(),
	}
}

// BreakerState exposes the transport circuit state for the health report.
func (c *Client) BreakerState() string { return c.pool.BreakerState() }

// CacheStats exposes cache counters for the health report.
func (c *Client) CacheStats() cache.Stats { return c.cache.Stats() }

// PoolStats exposes transport counters for metrics export.
func (c *Client) PoolStats() httpclient.Stats { return c.pool.GetStats() }

type tokenRow struct {
	ID string `json:"id"`
}

func (c *Client) getTokens(ctx context.Context, path string, limit int) ([]domain.TokenAddress, error) {
	for attempt := 0; attempt < 2; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}

		var headers map[string]string
		if c.config.APIKey != "" {
			headers = map[string]string{"x-api-key": c.config.APIKey}
		}
		var rows []tokenRow
		err := c.pool.GetJSON(ctx, c.config.BaseURL+path, headers, &rows)
		if errors.Is(err, httpclient.ErrRateLimited) {
			c.limiter.ReportRejected()
			continue
		}
		if err != nil {
			return nil, err
		}
		c.limiter.ReportSuccess()

		addrs := make([]domain.TokenAddress, 0, limit)
		for _, r := range rows {
			addrs = append(addrs, domain.TokenAddress(r.ID))
			if len(addrs) >= limit {
				break
			}
		}
		return addrs, nil
	}
	return nil, httpclient.ErrRateLimited
}

// GetVerifiedTokens returns directory-verified tokens, cached for ten
// minutes.
func (c *Client) GetVerifiedTokens(ctx context.Context, limit int) ([]domain.TokenAddress, error) {
	key := fmt.Sprintf("verified:%d", limit)
	if v, ok := c.cache.Get(key); ok {
		return v.([]domain.TokenAddress), nil
	}

	v, err := c.inflight.Do(key, func() (any, error) {
		addrs, err := c.getTokens(ctx, "/tokens/v2/tag?query=verified", limit)
		if err != nil {
			log.Debug().Err(err).Msg("verified token fetch failed")
			return nil, err
		}
		c.cache.Set(key, addrs, verifiedTTL)
		return addrs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.TokenAddress), nil
}

// GetRecentTokens returns the most recently listed tokens. Not cached:
// the feed wants fresh listings every cycle.
func (c *Client) GetRecentTokens(ctx context.Context, limit int) ([]domain.TokenAddress, error) {
	addrs, err := c.getTokens(ctx, "/tokens/v2/recent", limit)
	if err != nil {
		log.Debug().Err(err).Msg("recent token fetch failed")
		return nil, err
	}
	return addrs, nil
}
