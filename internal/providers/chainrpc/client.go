// Package chainrpc is the authoritative on-chain data source: a JSON-RPC
// client over the chain's RPC gateway with rate limiting, TTL caching, and
// in-flight request coalescing.
package chainrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/memerun/memerun/internal/data/cache"
	"github.com/memerun/memerun/internal/data/inflight"
	"github.com/memerun/memerun/internal/domain"
	"github.com/memerun/memerun/internal/infrastructure/httpclient"
	"github.com/memerun/memerun/internal/net/ratelimit"
)

const (
	mintInfoTTL  = 5 * time.Minute
	holdersTTL   = 60 * time.Second
	creationTTL  = 10 * time.Minute
	holdersLimit = 100 // per-page cap imposed by the RPC gateway
	maxPages     = 3   // holder totals beyond this are reported as a floor
)

// Config holds chain RPC client configuration.
type Config struct {
	BaseURL string
	WSURL   string
	APIKey  string
	RPS     float64
}

// Client is the Provider A chain RPC client. Process-wide singleton,
// immutable after construction.
type Client struct {
	config    Config
	pool      *httpclient.Pool
	limiter   ratelimit.Limiter
	cache     *cache.TTLCache
	inflight  *inflight.Registry
	requestID atomic.Uint64
}

// NewClient creates the chain RPC client.
func NewClient(config Config) *Client {
	if config.RPS == 0 {
		config.RPS = 5
	}
	return &Client{
		config: config,
		pool: httpclient.New(httpclient.Config{
			Name:           "chainrpc",
			RequestTimeout: 30 * time.Second,
		}),
		limiter:  ratelimit.NewTokenBucket("chainrpc", config.RPS),
		cache:    cache.New(1000, 2*time.Minute),
		inflight: inflight.NewRegistry(),
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

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// call performs one JSON-RPC request under the rate limiter, re-queueing
// once on a 429 after extending backoff.
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	for attempt := 0; attempt < 2; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}

		var resp rpcResponse
		req := rpcRequest{JSONRPC: "2.0", ID: c.requestID.Add(1), Method: method, Params: params}
		err := c.pool.PostJSON(ctx, c.endpoint(), req, &resp)
		if errors.Is(err, httpclient.ErrRateLimited) {
			c.limiter.ReportRejected()
			c.limiter.CooldownUntil(time.Now().Add(2 * time.Second))
			continue
		}
		if err != nil {
			return err
		}
		c.limiter.ReportSuccess()

		if resp.Error != nil {
			return resp.Error
		}
		if result != nil {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	}
	return httpclient.ErrRateLimited
}

// API key is conveyed as a URL query parameter.
func (c *Client) endpoint() string {
	return c.config.BaseURL + "/?api-key=" + url.QueryEscape(c.config.APIKey)
}

// GetTokenMintInfo returns the parsed mint account, cached for five
// minutes. A nil result with nil error means the account does not exist.
func (c *Client) GetTokenMintInfo(ctx context.Context, addr domain.TokenAddress) (*domain.MintInfo, error) {
	key := "mint:" + addr.String()
	if v, ok := c.cache.Get(key); ok {
		return v.(*domain.MintInfo), nil
	}

	v, err := c.inflight.Do(key, func() (any, error) {
		info, err := c.fetchMintInfo(ctx, addr)
		if err != nil {
			log.Debug().Err(err).Str("token", addr.Short()).Msg("mint info fetch failed")
			return nil, err
		}
		c.cache.Set(key, info, mintInfoTTL)
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.MintInfo), nil
}

type accountInfoResult struct {
	Value *struct {
		Data struct {
			Parsed struct {
				Info struct {
					MintAuthority   string `json:"mintAuthority"`
					FreezeAuthority string `json:"freezeAuthority"`
					Decimals        int    `json:"decimals"`
					Supply          string `json:"supply"`
					IsInitialized   bool   `json:"isInitialized"`
				} `json:"info"`
				Type string `json:"type"`
			} `json:"parsed"`
		} `json:"data"`
	} `json:"value"`
}

func (c *Client) fetchMintInfo(ctx context.Context, addr domain.TokenAddress) (*domain.MintInfo, error) {
	var res accountInfoResult
	params := []any{addr.String(), map[string]string{"encoding": "jsonParsed"}}
	if err := c.call(ctx, "getAccountInfo", params, &res); err != nil {
		return nil, err
	}
	if res.Value == nil {
		return nil, nil
	}

	info := res.Value.Data.Parsed.Info
	supply, _ := strconv.ParseFloat(info.Supply, 64)
	return &domain.MintInfo{
		MintAuthority:   info.MintAuthority,
		FreezeAuthority: info.FreezeAuthority,
		Decimals:        info.Decimals,
		Supply:          supply,
		IsInitialized:   info.IsInitialized,
	}, nil
}

type tokenAccountsResult struct {
	Total         int `json:"total"`
	TokenAccounts []struct {
		Owner  string  `json:"owner"`
		Amount float64 `json:"amount"`
	} `json:"token_accounts"`
}

// GetTokenHolders returns holder distribution from paginated token
// accounts, cached for sixty seconds. The total stops counting after
// maxPages, so callers must treat it as a floor when TotalIsCap is set.
func (c *Client) GetTokenHolders(ctx context.Context, addr domain.TokenAddress) (*domain.HolderPage, error) {
	key := "holders:" + addr.String()
	if v, ok := c.cache.Get(key); ok {
		return v.(*domain.HolderPage), nil
	}

	v, err := c.inflight.Do(key, func() (any, error) {
		page, err := c.fetchHolders(ctx, addr)
		if err != nil {
			log.Debug().Err(err).Str("token", addr.Short()).Msg("holder fetch failed")
			return nil, err
		}
		c.cache.Set(key, page, holdersTTL)
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.HolderPage), nil
}

func (c *Client) fetchHolders(ctx context.Context, addr domain.TokenAddress) (*domain.HolderPage, error) {
	var all []domain.Holder
	total := 0
	capped := false
	var totalSupply float64

	for page := 1; page <= maxPages; page++ {
		var res tokenAccountsResult
		params := map[string]any{"mint": addr.String(), "page": page, "limit": holdersLimit}
		if err := c.call(ctx, "getTokenAccounts", params, &res); err != nil {
			if page == 1 {
				return nil, err
			}
			break // partial pages are still a usable floor
		}

		for _, acct := range res.TokenAccounts {
			all = append(all, domain.Holder{Owner: acct.Owner, Amount: acct.Amount})
			totalSupply += acct.Amount
		}
		total += len(res.TokenAccounts)

		if len(res.TokenAccounts) < holdersLimit {
			break
		}
		if page == maxPages {
			capped = true
		}
	}

	// Percentages relative to the supply observed across fetched pages.
	if totalSupply > 0 {
		for i := range all {
			all[i].Percent = all[i].Amount / totalSupply * 100
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Amount > all[j].Amount })
	if len(all) > 20 {
		all = all[:20]
	}

	return &domain.HolderPage{Total: total, TotalIsCap: capped, TopHolders: all}, nil
}

// SignatureInfo is one row from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	BlockTime int64  `json:"blockTime"`
	Failed    bool   `json:"-"`
}

// GetRecentTransactions returns the most recent transaction signatures for
// the address. Not cached: recency is the point.
func (c *Client) GetRecentTransactions(ctx context.Context, addr domain.TokenAddress, limit int) ([]SignatureInfo, error) {
	var raw []struct {
		Signature string          `json:"signature"`
		Slot      uint64          `json:"slot"`
		BlockTime int64           `json:"blockTime"`
		Err       json.RawMessage `json:"err"`
	}
	params := []any{addr.String(), map[string]int{"limit": limit}}
	if err := c.call(ctx, "getSignaturesForAddress", params, &raw); err != nil {
		return nil, err
	}

	sigs := make([]SignatureInfo, 0, len(raw))
	for _, r := range raw {
		sigs = append(sigs, SignatureInfo{
			Signature: r.Signature,
			Slot:      r.Slot,
			BlockTime: r.BlockTime,
			Failed:    len(r.Err) > 0 && string(r.Err) != "null",
		})
	}
	return sigs, nil
}

// Transaction is the subset of getTransaction the bundle detector and the
// listing stream need.
type Transaction struct {
	Signature   string
	Slot        uint64
	BlockTime   int64
	AccountKeys []string
	TokenMints  []string // distinct mints from post-transaction balances
	Failed      bool
}

// GetTransaction fetches a single transaction by signature.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	var res struct {
		Slot        uint64 `json:"slot"`
		BlockTime   int64  `json:"blockTime"`
		Transaction struct {
			Message struct {
				AccountKeys []struct {
					Pubkey string `json:"pubkey"`
				} `json:"accountKeys"`
			} `json:"message"`
		} `json:"transaction"`
		Meta struct {
			Err               json.RawMessage `json:"err"`
			PostTokenBalances []struct {
				Mint string `json:"mint"`
			} `json:"postTokenBalances"`
		} `json:"meta"`
	}
	params := []any{signature, map[string]any{"encoding": "jsonParsed", "maxSupportedTransactionVersion": 0}}
	if err := c.call(ctx, "getTransaction", params, &res); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(res.Transaction.Message.AccountKeys))
	for _, k := range res.Transaction.Message.AccountKeys {
		keys = append(keys, k.Pubkey)
	}

	var mints []string
	seen := make(map[string]bool)
	for _, b := range res.Meta.PostTokenBalances {
		if b.Mint != "" && !seen[b.Mint] {
			seen[b.Mint] = true
			mints = append(mints, b.Mint)
		}
	}

	return &Transaction{
		Signature:   signature,
		Slot:        res.Slot,
		BlockTime:   res.BlockTime,
		AccountKeys: keys,
		TokenMints:  mints,
		Failed:      len(res.Meta.Err) > 0 && string(res.Meta.Err) != "null",
	}, nil
}

// GetTokenCreationSignature walks signature history to the oldest entry,
// which is the mint's creation transaction. Cached: creation never changes.
func (c *Client) GetTokenCreationSignature(ctx context.Context, addr domain.TokenAddress) (*domain.CreationInfo, error) {
	key := "creation:" + addr.String()
	if v, ok := c.cache.Get(key); ok {
		return v.(*domain.CreationInfo), nil
	}

	v, err := c.inflight.Do(key, func() (any, error) {
		sigs, err := c.GetRecentTransactions(ctx, addr, 1000)
		if err != nil {
			return nil, err
		}
		if len(sigs) == 0 {
			return nil, fmt.Errorf("no signatures for %s", addr.Short())
		}

		oldest := sigs[len(sigs)-1]
		info := &domain.CreationInfo{
			Signature: oldest.Signature,
			BlockTime: time.Unix(oldest.BlockTime, 0),
			Slot:      oldest.Slot,
		}
		c.cache.Set(key, info, creationTTL)
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.CreationInfo), nil
}
