// Package screening rejects tokens that should never generate signals:
// stablecoins, wrapped majors, and LP tokens first, then config-driven
// numeric bounds on the fused metrics.
package screening

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/memerun/memerun/internal/config"
	"github.com/memerun/memerun/internal/domain"
)

// knownExcluded are well-known non-memecoin mints that still show up in
// trending feeds.
var knownExcluded = map[domain.TokenAddress]string{
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": "USDC",
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": "USDT",
	"So11111111111111111111111111111111111111112":  "wrapped SOL",
	"7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs": "wrapped ETH",
	"3NZ9JMVBmGAqocybic2c7LQCJScmgsAZ6vQqTDzcqmJh": "wrapped BTC",
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So":  "liquid-staked SOL",
}

var (
	stableTickerRE = regexp.MustCompile(`(?i)^(usdt|usdc|busd|dai|frax|tusd|usdd|gusd|pyusd|usde)$`)
	usdSuffixRE    = regexp.MustCompile(`(?i)usd$`)
	wrappedRE      = regexp.MustCompile(`(?i)^(w|wrapped[ -]?|bridged[ -]?|st|m)?(sol|eth|btc|bnb|avax|matic)$`)
	lpNameRE       = regexp.MustCompile(`(?i)(\bLP\b|-lp-|/| LP$|raydium|orca|meteora)`)
	stableNameRE   = regexp.MustCompile(`(?i)(usd|stable|peg|dollar)`)
)

// Filter applies the exclusion rules and the numeric screening bounds.
type Filter struct {
	bounds config.Screening
}

// NewFilter creates a filter with the given numeric bounds.
func NewFilter(bounds config.Screening) *Filter {
	return &Filter{bounds: bounds}
}

// MinAgeMinutes exposes the configured age floor. Age is not checked in
// Screen; it feeds the router so young tokens read as too early rather
// than screening failures.
func (f *Filter) MinAgeMinutes() float64 { return f.bounds.MinTokenAgeMinutes }

// Excluded reports whether the token is categorically out of scope, with a
// human-readable reason. Rules run cheapest first.
func (f *Filter) Excluded(m *domain.TokenMetrics) (bool, string) {
	if name, ok := knownExcluded[m.Address]; ok {
		return true, "known non-meme token: " + name
	}

	ticker := strings.TrimSpace(m.Ticker)
	if stableTickerRE.MatchString(ticker) {
		return true, "stablecoin ticker " + ticker
	}
	if usdSuffixRE.MatchString(ticker) && len(ticker) <= 6 {
		return true, "usd-suffixed ticker " + ticker
	}
	if wrappedRE.MatchString(ticker) {
		return true, "wrapped or bridged major " + ticker
	}
	if lpNameRE.MatchString(m.Name) {
		return true, "LP token name"
	}

	// A token trading pinned to $1 with a stable-flavored name is a peg,
	// whatever it calls itself.
	if m.Price >= 0.95 && m.Price <= 1.05 && stableNameRE.MatchString(m.Name+" "+ticker) {
		return true, fmt.Sprintf("price %.3f pegged near $1 with stable naming", m.Price)
	}

	return false, ""
}

// Screen checks the fused metrics against the numeric bounds. The first
// failed bound names the rejection.
func (f *Filter) Screen(m *domain.TokenMetrics) (bool, string) {
	b := f.bounds
	switch {
	case m.MarketCap < b.MinMarketCap:
		return false, fmt.Sprintf("market cap %.0f below %.0f", m.MarketCap, b.MinMarketCap)
	case m.MarketCap > b.MaxMarketCap:
		return false, fmt.Sprintf("market cap %.0f above %.0f", m.MarketCap, b.MaxMarketCap)
	case m.Volume24h < b.Min24hVolume:
		return false, fmt.Sprintf("24h volume %.0f below %.0f", m.Volume24h, b.Min24hVolume)
	case m.VolumeMCRatio < b.MinVolumeMCRatio:
		return false, fmt.Sprintf("volume/mc ratio %.4f below %.4f", m.VolumeMCRatio, b.MinVolumeMCRatio)
	case m.HolderCount < b.MinHolderCount:
		return false, fmt.Sprintf("holder count %d below %d", m.HolderCount, b.MinHolderCount)
	case m.Top10Concentration > b.MaxTop10Concentration:
		return false, fmt.Sprintf("top10 concentration %.1f above %.1f", m.Top10Concentration, b.MaxTop10Concentration)
	case m.Liquidity < b.MinLiquidityPool:
		return false, fmt.Sprintf("liquidity %.0f below %.0f", m.Liquidity, b.MinLiquidityPool)
	}
	return true, ""
}
