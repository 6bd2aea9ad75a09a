package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/memerun/memerun/internal/config"
	"github.com/memerun/memerun/internal/discovery"
	"github.com/memerun/memerun/internal/domain"
	"github.com/memerun/memerun/internal/metrics"
	"github.com/memerun/memerun/internal/persistence"
	"github.com/memerun/memerun/internal/scoring"
	"github.com/memerun/memerun/internal/screening"
	"github.com/memerun/memerun/internal/thresholds"
	"github.com/memerun/memerun/internal/tiers"
)

type mockAggregatorFeed struct {
	newPairs    []domain.Pair
	trending    []domain.TokenAddress
	newPairsErr error
	trendingErr error
}

func (m *mockAggregatorFeed) GetNewPairs(ctx context.Context, limit int) ([]domain.Pair, error) {
	return m.newPairs, m.newPairsErr
}

func (m *mockAggregatorFeed) GetTrending(ctx context.Context, limit int) ([]domain.TokenAddress, error) {
	return m.trending, m.trendingErr
}

type mockDirectoryFeed struct {
	recent []domain.TokenAddress
	err    error
}

func (m *mockDirectoryFeed) GetRecentTokens(ctx context.Context, limit int) ([]domain.TokenAddress, error) {
	return m.recent, m.err
}

func TestCandidatesDedupAcrossSources(t *testing.T) {
	agg := &mockAggregatorFeed{
		newPairs: []domain.Pair{{BaseAddress: "aaa"}, {BaseAddress: "bbb"}},
		trending: []domain.TokenAddress{"bbb", "ccc"},
	}
	dir := &mockDirectoryFeed{recent: []domain.TokenAddress{"aaa", "ddd"}}

	f := NewFeed(agg, dir)
	got := f.Candidates(context.Background())
	require.Equal(t, []domain.TokenAddress{"aaa", "bbb", "ddd", "ccc"}, got)
}

func TestCandidatesSourcesFailIndependently(t *testing.T) {
	agg := &mockAggregatorFeed{
		newPairsErr: errors.New("aggregator down"),
		trending:    []domain.TokenAddress{"ttt"},
	}
	dir := &mockDirectoryFeed{err: errors.New("directory down")}

	f := NewFeed(agg, dir)
	got := f.Candidates(context.Background())
	require.Equal(t, []domain.TokenAddress{"ttt"}, got)
}

func TestPushedCandidatesComeFirstAndDrain(t *testing.T) {
	agg := &mockAggregatorFeed{newPairs: []domain.Pair{{BaseAddress: "polled"}}}
	f := NewFeed(agg, nil)

	f.Push("streamed")
	got := f.Candidates(context.Background())
	require.Equal(t, []domain.TokenAddress{"streamed", "polled"}, got)

	// Drained: a second cycle sees only the polled source.
	got = f.Candidates(context.Background())
	require.Equal(t, []domain.TokenAddress{"polled"}, got)
}

func TestRunCycleCountsVerdicts(t *testing.T) {
	store := persistence.NewMemoryStore()
	facade := &mockFacade{metrics: map[domain.TokenAddress]*domain.TokenMetrics{
		"early111": earlyQualityMetrics("early111"),
	}}

	m := metrics.New()
	classifier := tiers.NewClassifier(nil)
	pipe := NewPipeline(PipelineDeps{
		Store:    store,
		Notifier: &mockNotifier{},
		Facade:   facade,
		Safety: &mockSafety{report: domain.SafetyReport{
			MintAuthorityRevoked: true, FreezeAuthorityRevoked: true, SafetyScore: 72,
		}},
		Bundles:    &mockBundles{report: domain.BundleReport{RiskLevel: domain.RiskLow, RiskScore: 30}},
		Momentum:   &mockMomentum{snap: domain.MomentumSnapshot{TotalScore: 70, HolderGrowthRate: 0.3}},
		Info:       &mockInfo{},
		Scorer:     scoring.NewScorer(),
		Filter:     screening.NewFilter(config.Default().Screening),
		Classifier: classifier,
		Sizer:      tiers.NewSizer(0.5, classifier),
		Thresholds: thresholds.NewStore(context.Background(), store, domain.DefaultThresholds()),
		Discovery:  discovery.NewTracker(),
		Metrics:    m,
	})

	agg := &mockAggregatorFeed{
		newPairs: []domain.Pair{{BaseAddress: "early111"}, {BaseAddress: "ghost111"}},
	}
	sched := NewScheduler(time.Second, NewFeed(agg, nil), pipe, discovery.NewTracker(), m, nil)

	stats := sched.RunCycle(context.Background())
	require.Equal(t, 2, stats.Candidates)
	require.Equal(t, 1, stats.Verdicts[domain.VerdictOnChainSignalSent])
	require.Equal(t, 1, stats.Verdicts[domain.VerdictNoMetrics])
	require.Equal(t, 1, stats.Signals)

	// Candidates never undercount emissions.
	require.GreaterOrEqual(t, stats.Candidates, stats.Signals)

	// Emissions are exported by track.
	require.Equal(t, 1.0, m.CounterValue("memerun_signals_total"))
}
