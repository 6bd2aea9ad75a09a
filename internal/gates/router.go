// Package gates implements dual-track routing and the post-score gates.
// A token's age decides its trust basis: old enough and survival itself is
// evidence (PROVEN_RUNNER, gated on holder growth); young tokens are
// admitted only on structural quality (EARLY_QUALITY, gated on safety and
// bundle risk).
package gates

import (
	"fmt"

	"github.com/memerun/memerun/internal/domain"
)

// Age boundaries in minutes. The [45,90) transition zone routes to
// PROVEN_RUNNER with standard requirements; a strict dead-zone proved too
// exclusionary.
const (
	tooEarlyBelowMinutes = 2.0
	provenRunnerMinutes  = 45.0
)

// Per-track gate constants, production and learning-mode variants.
const (
	minGrowthProduction = 0.01
	minGrowthLearning   = 0.0

	earlyMinSafetyProduction = 50
	earlyMinSafetyLearning   = 35
	earlyMaxBundleProduction = 55
	earlyMaxBundleLearning   = 70
)

// Route assigns a track from token age. minAgeMinutes is the configured
// screening floor; the two-minute hard floor applies even when it is lower.
// ok is false below the effective floor.
func Route(tokenAgeMinutes, minAgeMinutes float64) (track domain.Track, ok bool) {
	floor := tooEarlyBelowMinutes
	if minAgeMinutes > floor {
		floor = minAgeMinutes
	}
	switch {
	case tokenAgeMinutes < floor:
		return "", false
	case tokenAgeMinutes < provenRunnerMinutes:
		return domain.TrackEarlyQuality, true
	default:
		return domain.TrackProvenRunner, true
	}
}

// CheckTrack applies the per-track gate after scoring. Holder-growth and
// liquidity factors are already folded into the composite for the early
// track and are not re-gated here.
func CheckTrack(track domain.Track, learningMode bool, momentum domain.MomentumSnapshot, safetyScore, bundleRisk int) (bool, string) {
	switch track {
	case domain.TrackProvenRunner:
		minGrowth := minGrowthProduction
		if learningMode {
			minGrowth = minGrowthLearning
		}
		if momentum.HolderGrowthRate < minGrowth {
			return false, fmt.Sprintf("holder growth %.3f/min below %.3f", momentum.HolderGrowthRate, minGrowth)
		}
		return true, ""

	case domain.TrackEarlyQuality:
		minSafety, maxBundle := earlyMinSafetyProduction, earlyMaxBundleProduction
		if learningMode {
			minSafety, maxBundle = earlyMinSafetyLearning, earlyMaxBundleLearning
		}
		if safetyScore < minSafety {
			return false, fmt.Sprintf("safety %d below %d", safetyScore, minSafety)
		}
		if bundleRisk > maxBundle {
			return false, fmt.Sprintf("bundle risk %d above %d", bundleRisk, maxBundle)
		}
		return true, ""

	default:
		return false, "unrouted track"
	}
}

// EffectiveMinScore relaxes the composite floor in learning mode so more
// outcome rows get collected for the optimizer.
func EffectiveMinScore(t domain.Thresholds) float64 {
	if t.LearningMode && t.MinOnChainScore > 20 {
		return 20
	}
	return t.MinOnChainScore
}

// RecommendationBlocks reports whether the categorical recommendation
// vetoes emission. STRONG_AVOID always blocks; AVOID blocks only in
// production mode.
func RecommendationBlocks(rec domain.Recommendation, learningMode bool) bool {
	if rec == domain.StrongAvoid {
		return true
	}
	return rec == domain.Avoid && !learningMode
}

// RiskGate reports whether the graded risk level vetoes emission before
// routing. CRITICAL always blocks; HIGH blocks in production mode.
func RiskGate(level domain.RiskLevel, learningMode bool) bool {
	if level == domain.RiskCritical {
		return true
	}
	return level == domain.RiskHigh && !learningMode
}

// SeriousWarnings filters the scorer's warning list down to the entries
// that count toward the production warning gate. The two generic KOL
// absence notes are informational, not structural.
func SeriousWarnings(warnings []string) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		if w == "no KOL activity" || w == "no KOL mentions yet" {
			continue
		}
		out = append(out, w)
	}
	return out
}

// WarningGateBlocks applies the step-13 gate: four or more serious
// warnings block in production mode. Skipped entirely in learning mode.
func WarningGateBlocks(warnings []string, learningMode bool) bool {
	if learningMode {
		return false
	}
	return len(SeriousWarnings(warnings)) >= 4
}
