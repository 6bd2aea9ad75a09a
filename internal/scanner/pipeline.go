// Package scanner drives the periodic candidate loop and the per-token
// evaluation pipeline. The pipeline is an ordered, short-circuiting chain:
// every candidate leaves with exactly one verdict.
package scanner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/memerun/memerun/internal/discovery"
	"github.com/memerun/memerun/internal/domain"
	"github.com/memerun/memerun/internal/gates"
	"github.com/memerun/memerun/internal/metrics"
	"github.com/memerun/memerun/internal/persistence"
	"github.com/memerun/memerun/internal/scoring"
	"github.com/memerun/memerun/internal/screening"
	"github.com/memerun/memerun/internal/thresholds"
	"github.com/memerun/memerun/internal/tiers"
)

// Volume authenticity below this reads as wash trading.
const minVolumeAuthenticity = 25

// MetricsSource is the acquisition facade surface the pipeline consumes.
type MetricsSource interface {
	GetTokenMetrics(ctx context.Context, addr domain.TokenAddress) *domain.TokenMetrics
	AnalyzeVolumeAuthenticity(ctx context.Context, addr domain.TokenAddress) int
}

// SafetySource runs the contract safety layer.
type SafetySource interface {
	Check(ctx context.Context, addr domain.TokenAddress) (domain.SafetyReport, bool)
}

// BundleSource runs early-block cluster analysis.
type BundleSource interface {
	Analyze(ctx context.Context, addr domain.TokenAddress) domain.BundleReport
}

// MomentumSource scores short-horizon trading pressure.
type MomentumSource interface {
	Analyze(ctx context.Context, addr domain.TokenAddress, m *domain.TokenMetrics) domain.MomentumSnapshot
}

// InfoSource provides the social profile for the score bonus.
type InfoSource interface {
	GetTokenInfo(ctx context.Context, addr domain.TokenAddress) (*domain.TokenInfo, error)
}

// Notifier delivers emitted signals.
type Notifier interface {
	Publish(ctx context.Context, sig *domain.Signal) error
}

// Pipeline evaluates one candidate at a time. Construction wires the
// collaborators; no state is kept between candidates except through them.
type Pipeline struct {
	store      persistence.SignalStore
	notifier   Notifier
	facade     MetricsSource
	safety     SafetySource
	bundles    BundleSource
	momentum   MomentumSource
	info       InfoSource
	scorer     *scoring.Scorer
	filter     *screening.Filter
	classifier *tiers.Classifier
	sizer      *tiers.Sizer
	thresholds *thresholds.Store
	discovery  *discovery.Tracker
	metrics    *metrics.Metrics
}

// PipelineDeps bundles the collaborators for construction.
type PipelineDeps struct {
	Store      persistence.SignalStore
	Notifier   Notifier
	Facade     MetricsSource
	Safety     SafetySource
	Bundles    BundleSource
	Momentum   MomentumSource
	Info       InfoSource
	Scorer     *scoring.Scorer
	Filter     *screening.Filter
	Classifier *tiers.Classifier
	Sizer      *tiers.Sizer
	Thresholds *thresholds.Store
	Discovery  *discovery.Tracker
	Metrics    *metrics.Metrics // optional
}

// NewPipeline wires the evaluation chain.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		store:      deps.Store,
		notifier:   deps.Notifier,
		facade:     deps.Facade,
		safety:     deps.Safety,
		bundles:    deps.Bundles,
		momentum:   deps.Momentum,
		info:       deps.Info,
		scorer:     deps.Scorer,
		filter:     deps.Filter,
		classifier: deps.Classifier,
		sizer:      deps.Sizer,
		thresholds: deps.Thresholds,
		discovery:  deps.Discovery,
		metrics:    deps.Metrics,
	}
}

// Evaluate runs the full chain for one candidate and returns its verdict.
// Threshold reads use a snapshot taken here, so a concurrent apply never
// splits a single evaluation.
func (p *Pipeline) Evaluate(ctx context.Context, addr domain.TokenAddress) domain.Verdict {
	snap := p.thresholds.Current()

	// 1. Open-position short-circuit.
	open, err := p.store.HasOpenPosition(ctx, addr)
	if err != nil {
		log.Warn().Err(err).Str("token", addr.Short()).Msg("open position check failed")
	}
	if open {
		return domain.VerdictSkipped
	}

	// 2. Safety layer. Missing data never blocks here.
	safetyReport, block := p.safety.Check(ctx, addr)
	if block {
		return domain.VerdictSafetyBlocked
	}

	// 3. Fused metrics.
	tm := p.facade.GetTokenMetrics(ctx, addr)
	if tm == nil {
		return domain.VerdictNoMetrics
	}

	// 4. Categorical exclusions.
	if excluded, reason := p.filter.Excluded(tm); excluded {
		log.Debug().Str("token", addr.Short()).Str("reason", reason).Msg("excluded")
		return domain.VerdictScreeningFailed
	}

	// 5. Tier gate.
	tier := p.classifier.Classify(tm)
	if ok, reason := p.classifier.Gate(tier, tm, safetyReport.SafetyScore); !ok {
		log.Debug().Str("token", addr.Short()).Str("reason", reason).Msg("tier blocked")
		return domain.VerdictTierBlocked
	}

	// 6. Numeric screening bounds.
	if ok, reason := p.filter.Screen(tm); !ok {
		log.Debug().Str("token", addr.Short()).Str("reason", reason).Msg("screening failed")
		return domain.VerdictScreeningFailed
	}

	// 7. Scam layer 1: volume that does not look organic.
	if auth := p.facade.AnalyzeVolumeAuthenticity(ctx, addr); auth < minVolumeAuthenticity {
		log.Debug().Str("token", addr.Short()).Int("authenticity", auth).Msg("scam rejected")
		return domain.VerdictScamRejected
	}

	// 8. Bundle, momentum, and social profile fan out in parallel.
	var (
		bundleReport domain.BundleReport
		momentumSnap domain.MomentumSnapshot
		tokenInfo    *domain.TokenInfo
	)
	done := make(chan struct{}, 3)
	go func() { bundleReport = p.bundles.Analyze(ctx, addr); done <- struct{}{} }()
	go func() { momentumSnap = p.momentum.Analyze(ctx, addr, tm); done <- struct{}{} }()
	go func() {
		if info, err := p.info.GetTokenInfo(ctx, addr); err == nil {
			tokenInfo = info
		}
		done <- struct{}{}
	}()
	for i := 0; i < 3; i++ {
		<-done
	}

	if momentumSnap.TotalScore < snap.MinMomentumScore {
		p.discovery.Observe(addr)
		return domain.VerdictMomentumFailed
	}

	score := p.scorer.Score(scoring.Input{
		Metrics:  tm,
		Safety:   safetyReport,
		Bundle:   bundleReport,
		Momentum: momentumSnap,
	})
	adjusted := scoring.AdjustedTotal(score, scoring.SocialBonus(tokenInfo))

	// 9. Risk gate.
	if gates.RiskGate(score.RiskLevel, snap.LearningMode) {
		return domain.VerdictBundleBlocked
	}

	// 10. Dual-track routing.
	track, ok := gates.Route(tm.TokenAgeMinutes, p.filter.MinAgeMinutes())
	if !ok {
		return domain.VerdictTooEarly
	}

	// 11. Per-track gate.
	if ok, reason := gates.CheckTrack(track, snap.LearningMode, momentumSnap,
		safetyReport.SafetyScore, bundleReport.RiskScore); !ok {
		log.Debug().
			Str("token", addr.Short()).
			Str("track", string(track)).
			Str("reason", reason).
			Msg("track gate failed")
		p.discovery.Observe(addr)
		if track == domain.TrackProvenRunner {
			return domain.VerdictMomentumFailed
		}
		return domain.VerdictDiscoveryFailed
	}

	// 12. Score and recommendation gate, plus the dynamic floors every
	// emitted signal must satisfy.
	if adjusted < gates.EffectiveMinScore(snap) ||
		gates.RecommendationBlocks(score.Recommendation, snap.LearningMode) ||
		float64(safetyReport.SafetyScore) < snap.MinSafetyScore ||
		float64(bundleReport.RiskScore) > snap.MaxBundleRiskScore ||
		tm.Liquidity < snap.MinLiquidity ||
		tm.Top10Concentration > snap.MaxTop10Concentration {
		p.discovery.Observe(addr)
		return domain.VerdictScoringFailed
	}

	// 13. Warning count gate.
	if gates.WarningGateBlocks(score.Warnings, snap.LearningMode) {
		p.discovery.Observe(addr)
		return domain.VerdictDiscoveryFailed
	}

	// 14. Size and emit. The store write precedes the notifier so a failed
	// publish still leaves an auditable record.
	sig := &domain.Signal{
		ID:                    newSignalID(),
		Track:                 track,
		TokenMetrics:          *tm,
		Safety:                safetyReport,
		Bundle:                bundleReport,
		Momentum:              momentumSnap,
		OnChainScore:          score,
		SuggestedPositionSize: p.sizer.Size(tier, adjusted),
		RiskWarnings:          gates.SeriousWarnings(score.Warnings),
		GeneratedAt:           time.Now(),
	}

	if _, err := p.store.RecordSignal(ctx, sig); err != nil {
		log.Error().Err(err).Str("token", addr.Short()).Msg("signal store write failed")
		return domain.VerdictScoringFailed
	}
	if err := p.notifier.Publish(ctx, sig); err != nil {
		log.Warn().Err(err).Str("signal_id", sig.ID).Msg("notifier publish failed, signal retained")
	}
	p.discovery.Forget(addr)
	if p.metrics != nil {
		p.metrics.SignalsTotal.WithLabelValues(string(track)).Inc()
	}

	log.Info().
		Str("token", addr.Short()).
		Str("ticker", tm.Ticker).
		Str("track", string(track)).
		Float64("score", adjusted).
		Float64("size", sig.SuggestedPositionSize).
		Msg("signal sent")
	return domain.VerdictOnChainSignalSent
}

// newSignalID produces a time-ordered id so stored signals sort by
// emission time. Falls back to a random id if the clock source fails.
func newSignalID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
