package dexscreener

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memerun/memerun/internal/domain"
)

const testAddr = domain.TokenAddress("So11111111111111111111111111111111111111112")

func pairJSON(chainID string, addr string, liquidity float64) map[string]any {
	return map[string]any{
		"chainId":     chainID,
		"pairAddress": "pair-" + addr,
		"baseToken":   map[string]string{"address": addr, "symbol": "TEST", "name": "Test Token"},
		"priceUsd":    "0.00125",
		"liquidity":   map[string]float64{"usd": liquidity},
		"marketCap":   250000.0,
		"volume":      map[string]float64{"h24": 90000, "h1": 9000},
		"txns": map[string]any{
			"h24": map[string]int{"buys": 600, "sells": 300},
			"m5":  map[string]int{"buys": 5, "sells": 2},
		},
		"pairCreatedAt": 1700000000000,
	}
}

func TestGetTokenPairsFiltersChainAndCaches(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"pairs": []any{
				pairJSON("solana", testAddr.String(), 50000),
				pairJSON("ethereum", "0xdead", 900000),
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, ChainID: "solana", MinInterval: 1})

	pairs, err := c.GetTokenPairs(context.Background(), testAddr)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	require.Equal(t, testAddr, pairs[0].BaseAddress)
	require.InDelta(t, 0.00125, pairs[0].PriceUSD, 1e-9)
	require.Equal(t, 600, pairs[0].Buys24h)

	// Second call served from cache.
	_, err = c.GetTokenPairs(context.Background(), testAddr)
	require.NoError(t, err)
	require.EqualValues(t, 1, hits.Load())
}

func TestGetTokenPairsRequeuedAfter429(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"pairs": []any{pairJSON("solana", testAddr.String(), 50000)},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, ChainID: "solana", MinInterval: 1})

	pairs, err := c.GetTokenPairs(context.Background(), testAddr)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	require.EqualValues(t, 2, hits.Load())
}

func TestGetTokenInfoParsesProfileLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token-profiles/latest/v1":
			json.NewEncoder(w).Encode([]any{map[string]any{
				"chainId":      "solana",
				"tokenAddress": testAddr.String(),
				"description":  "a test token with a real description for scoring",
				"links": []map[string]string{
					{"type": "twitter", "url": "https://x.com/test"},
					{"type": "website", "url": "https://test.xyz"},
				},
			}})
		case "/token-boosts/latest/v1":
			json.NewEncoder(w).Encode([]any{map[string]any{
				"tokenAddress": testAddr.String(),
				"totalAmount":  2.0,
			}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, ChainID: "solana", MinInterval: 1})

	info, err := c.GetTokenInfo(context.Background(), testAddr)
	require.NoError(t, err)
	require.True(t, info.HasPaidProfile)
	require.Equal(t, "https://x.com/test", info.Twitter)
	require.Equal(t, "https://test.xyz", info.Website)
	require.Equal(t, 2, info.BoostCount)
}

func TestGetTrendingFiltersChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]any{
			map[string]any{"chainId": "solana", "tokenAddress": "sol1"},
			map[string]any{"chainId": "ethereum", "tokenAddress": "0xeee"},
			map[string]any{"chainId": "solana", "tokenAddress": "sol2"},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, ChainID: "solana", MinInterval: 1})

	addrs, err := c.GetTrending(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, []domain.TokenAddress{"sol1", "sol2"}, addrs)
}
