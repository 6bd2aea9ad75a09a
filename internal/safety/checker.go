// Package safety scores contract- and distribution-level safety with fixed
// weights and decides the hard block at pipeline step 2.
package safety

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/memerun/memerun/internal/domain"
)

// Symbolic flags attached to the report.
const (
	FlagMintAuthorityActive   = "mint_authority_active"
	FlagFreezeAuthorityActive = "freeze_authority_active"
	FlagDeployerConcentration = "deployer_concentration"
	FlagHoneypotSuspected     = "honeypot_suspected"
)

// Fixed component weights; the sum is the 0..100 score budget.
const (
	weightMintRevoked   = 30
	weightFreezeRevoked = 25
	weightDeployerMax   = 15
	weightTop10Max      = 20
	weightSellableMax   = 10
)

// deployerBlockPct is the deployer holding above which active authorities
// become a hard block.
const deployerBlockPct = 30.0

// ContractAnalyzer provides the authority-level contract report.
type ContractAnalyzer interface {
	AnalyzeTokenContract(ctx context.Context, addr domain.TokenAddress) domain.SafetyReport
}

// TradeSource provides pair trade counts for the honeypot heuristic.
type TradeSource interface {
	GetTokenPairs(ctx context.Context, addr domain.TokenAddress) ([]domain.Pair, error)
}

// Checker evaluates token safety.
type Checker struct {
	contracts ContractAnalyzer
	trades    TradeSource
}

// NewChecker creates a safety checker.
func NewChecker(contracts ContractAnalyzer, trades TradeSource) *Checker {
	return &Checker{contracts: contracts, trades: trades}
}

// Check returns the completed safety report and whether the token must be
// blocked outright. Missing upstream data never blocks.
func (c *Checker) Check(ctx context.Context, addr domain.TokenAddress) (domain.SafetyReport, bool) {
	report := c.contracts.AnalyzeTokenContract(ctx, addr)
	if report.HasFlag(domain.FlagDataMissing) {
		return report, false
	}

	buys, sells, haveTrades := c.tradeCounts(ctx, addr)
	report = Score(report, buys, sells, haveTrades)

	block := c.shouldBlock(report)
	if block {
		log.Info().
			Str("token", addr.Short()).
			Int("safety_score", report.SafetyScore).
			Strs("flags", report.Flags).
			Msg("Safety block")
	}
	return report, block
}

// Score fills the weighted score and flags on a contract report. Exported
// separately so the weights are testable without providers.
func Score(report domain.SafetyReport, buys24h, sells24h int, haveTrades bool) domain.SafetyReport {
	score := 0

	if report.MintAuthorityRevoked {
		score += weightMintRevoked
	} else {
		report.Flags = append(report.Flags, FlagMintAuthorityActive)
	}
	if report.FreezeAuthorityRevoked {
		score += weightFreezeRevoked
	} else {
		report.Flags = append(report.Flags, FlagFreezeAuthorityActive)
	}

	switch {
	case report.DeployerHoldingPct <= 5:
		score += weightDeployerMax
	case report.DeployerHoldingPct <= 15:
		score += 8
	case report.DeployerHoldingPct <= deployerBlockPct:
		score += 3
	default:
		report.Flags = append(report.Flags, FlagDeployerConcentration)
	}

	switch {
	case report.Top10Concentration == 0: // unobserved
		score += weightTop10Max / 2
	case report.Top10Concentration <= 25:
		score += weightTop10Max
	case report.Top10Concentration <= 50:
		score += 12
	case report.Top10Concentration <= 75:
		score += 5
	}

	// Honeypot heuristic: real buy flow but zero observed sells means
	// holders likely cannot exit.
	honeypot := haveTrades && buys24h >= 20 && sells24h == 0
	if honeypot {
		report.Flags = append(report.Flags, FlagHoneypotSuspected)
	} else if haveTrades {
		score += weightSellableMax
	} else {
		score += weightSellableMax / 2
	}

	if score > 100 {
		score = 100
	}
	report.SafetyScore = score
	return report
}

func (c *Checker) shouldBlock(report domain.SafetyReport) bool {
	if report.HasFlag(FlagHoneypotSuspected) {
		return true
	}
	return !report.MintAuthorityRevoked &&
		!report.FreezeAuthorityRevoked &&
		report.DeployerHoldingPct > deployerBlockPct
}

func (c *Checker) tradeCounts(ctx context.Context, addr domain.TokenAddress) (buys, sells int, ok bool) {
	if c.trades == nil {
		return 0, 0, false
	}
	pairs, err := c.trades.GetTokenPairs(ctx, addr)
	if err != nil || len(pairs) == 0 {
		return 0, 0, false
	}
	for _, p := range pairs {
		buys += p.Buys24h
		sells += p.Sells24h
	}
	return buys, sells, true
}
