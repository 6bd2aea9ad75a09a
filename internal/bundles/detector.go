// Package bundles estimates insider/bundle risk from early-block
// transaction clustering around a token's creation.
package bundles

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/memerun/memerun/internal/domain"
	"github.com/memerun/memerun/internal/providers/chainrpc"
)

// Flags attached to the report.
const (
	FlagSameBlockCluster = "same_block_cluster"
	FlagEarlyBurst       = "early_burst"
	FlagHighFailureRate  = "high_failure_rate"
)

const (
	signatureWindow = 200 // recent signatures inspected per token
	earlySlotSpan   = 5   // slots after creation considered "early"
	clusterTxFetch  = 5   // transactions resolved for wallet extraction
)

// ChainSource is the chain RPC surface the detector consumes.
type ChainSource interface {
	Enabled() bool
	GetRecentTransactions(ctx context.Context, addr domain.TokenAddress, limit int) ([]chainrpc.SignatureInfo, error)
	GetTransaction(ctx context.Context, signature string) (*chainrpc.Transaction, error)
	GetTokenCreationSignature(ctx context.Context, addr domain.TokenAddress) (*domain.CreationInfo, error)
}

// Detector computes BundleReports.
type Detector struct {
	chain ChainSource
}

// NewDetector creates a bundle detector.
func NewDetector(chain ChainSource) *Detector {
	return &Detector{chain: chain}
}

// Analyze builds the bundle report. Unavailable chain data yields a LOW
// report rather than an error: bundle risk is advisory, not gating data
// collection.
func (d *Detector) Analyze(ctx context.Context, addr domain.TokenAddress) domain.BundleReport {
	if d.chain == nil || !d.chain.Enabled() {
		return domain.BundleReport{RiskLevel: domain.RiskLow, Flags: []string{domain.FlagDataMissing}}
	}

	creation, err := d.chain.GetTokenCreationSignature(ctx, addr)
	if err != nil {
		log.Debug().Err(err).Str("token", addr.Short()).Msg("creation lookup failed")
		return domain.BundleReport{RiskLevel: domain.RiskLow, Flags: []string{domain.FlagDataMissing}}
	}

	sigs, err := d.chain.GetRecentTransactions(ctx, addr, signatureWindow)
	if err != nil || len(sigs) == 0 {
		return domain.BundleReport{RiskLevel: domain.RiskLow, Flags: []string{domain.FlagDataMissing}}
	}

	report := d.cluster(ctx, creation, sigs)
	report.RiskLevel = levelFor(report.RiskScore)
	return report
}

// cluster scores same-slot density in the creation window plus overall
// failure rate. Wallet extraction resolves a handful of early
// transactions; supply attribution per wallet stays unimplemented, so
// BundledSupplyPct remains zero.
func (d *Detector) cluster(ctx context.Context, creation *domain.CreationInfo, sigs []chainrpc.SignatureInfo) domain.BundleReport {
	report := domain.BundleReport{}

	var early []chainrpc.SignatureInfo
	bySlot := map[uint64]int{}
	failed := 0
	for _, s := range sigs {
		if s.Failed {
			failed++
		}
		bySlot[s.Slot]++
		if s.Slot >= creation.Slot && s.Slot <= creation.Slot+earlySlotSpan {
			early = append(early, s)
		}
	}

	score := 0

	// Many transactions landing in the creation block itself is the
	// classic bundle shape.
	sameBlock := bySlot[creation.Slot]
	switch {
	case sameBlock >= 10:
		score += 50
		report.Flags = append(report.Flags, FlagSameBlockCluster)
	case sameBlock >= 5:
		score += 30
		report.Flags = append(report.Flags, FlagSameBlockCluster)
	case sameBlock >= 3:
		score += 15
	}

	if len(early) >= 20 {
		score += 25
		report.Flags = append(report.Flags, FlagEarlyBurst)
	} else if len(early) >= 10 {
		score += 10
	}

	if len(sigs) > 0 {
		failRatio := float64(failed) / float64(len(sigs))
		if failRatio > 0.4 {
			score += 15
			report.Flags = append(report.Flags, FlagHighFailureRate)
		}
	}

	report.ClusteredWalletCount = d.extractWallets(ctx, early)
	if report.ClusteredWalletCount >= 8 {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	report.RiskScore = score
	return report
}

// extractWallets resolves a few early transactions and counts distinct
// fee payers (the first account key).
func (d *Detector) extractWallets(ctx context.Context, early []chainrpc.SignatureInfo) int {
	wallets := map[string]struct{}{}
	fetched := 0
	for _, s := range early {
		if fetched >= clusterTxFetch {
			break
		}
		tx, err := d.chain.GetTransaction(ctx, s.Signature)
		if err != nil || tx == nil {
			continue
		}
		fetched++
		if len(tx.AccountKeys) > 0 {
			wallets[tx.AccountKeys[0]] = struct{}{}
		}
	}
	return len(wallets)
}

func levelFor(score int) domain.RiskLevel {
	switch {
	case score > 80:
		return domain.RiskCritical
	case score > 60:
		return domain.RiskHigh
	case score > 35:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}
