package domain

import "time"

// Track labels the trust basis a candidate was routed through.
type Track string

const (
	TrackProvenRunner Track = "PROVEN_RUNNER"
	TrackEarlyQuality Track = "EARLY_QUALITY"
)

// Verdict is the closed set of per-candidate pipeline outcomes.
type Verdict string

const (
	VerdictSkipped           Verdict = "SKIPPED"
	VerdictSafetyBlocked     Verdict = "SAFETY_BLOCKED"
	VerdictNoMetrics         Verdict = "NO_METRICS"
	VerdictScreeningFailed   Verdict = "SCREENING_FAILED"
	VerdictScamRejected      Verdict = "SCAM_REJECTED"
	VerdictScoringFailed     Verdict = "SCORING_FAILED"
	VerdictSignalSent        Verdict = "SIGNAL_SENT"
	VerdictDiscoverySent     Verdict = "DISCOVERY_SENT"
	VerdictKOLValidationSent Verdict = "KOL_VALIDATION_SENT"
	VerdictDiscoveryFailed   Verdict = "DISCOVERY_FAILED"
	VerdictOnChainSignalSent Verdict = "ONCHAIN_SIGNAL_SENT"
	VerdictMomentumFailed    Verdict = "MOMENTUM_FAILED"
	VerdictBundleBlocked     Verdict = "BUNDLE_BLOCKED"
	VerdictTooEarly          Verdict = "TOO_EARLY"
	VerdictTierBlocked       Verdict = "TIER_BLOCKED"
)

// Signal is the emitted structured record of a successful pass through the
// pipeline. Created at emission and never mutated; ownership transfers to
// the SignalStore, which later attaches an outcome out-of-core.
type Signal struct {
	ID                    string           `json:"id" db:"id"`
	Track                 Track            `json:"track" db:"track"`
	TokenMetrics          TokenMetrics     `json:"token_metrics"`
	Safety                SafetyReport     `json:"safety"`
	Bundle                BundleReport     `json:"bundle"`
	Momentum              MomentumSnapshot `json:"momentum"`
	OnChainScore          OnChainScore     `json:"onchain_score"`
	SuggestedPositionSize float64          `json:"suggested_position_size" db:"position_size"`
	RiskWarnings          []string         `json:"risk_warnings,omitempty"`
	GeneratedAt           time.Time        `json:"generated_at" db:"generated_at"`
}

// SignalOutcome is attached to a signal by an out-of-core component once
// the position resolves.
type SignalOutcome struct {
	SignalID   string    `json:"signal_id" db:"signal_id"`
	Win        bool      `json:"win" db:"win"`
	ReturnPct  float64   `json:"return_pct" db:"return_pct"`
	ResolvedAt time.Time `json:"resolved_at" db:"resolved_at"`
}

// SignalRow pairs a persisted signal's gating factors with its outcome, the
// shape the threshold optimizer consumes.
type SignalRow struct {
	Signal  Signal
	Outcome *SignalOutcome
}
