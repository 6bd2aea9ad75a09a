package thresholds

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/memerun/memerun/internal/domain"
)

type memPersister struct {
	mu     sync.Mutex
	stored *domain.Thresholds
	rows   []domain.SignalRow
}

func (m *memPersister) LoadThresholds(ctx context.Context) (*domain.Thresholds, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stored, nil
}

func (m *memPersister) PersistThresholds(ctx context.Context, t domain.Thresholds) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = &t
	return nil
}

func (m *memPersister) GetRecentSignalsWithOutcomes(ctx context.Context, window time.Duration) ([]domain.SignalRow, error) {
	return m.rows, nil
}

func row(onchain float64, win bool) domain.SignalRow {
	sig := domain.Signal{OnChainScore: domain.OnChainScore{Total: onchain}}
	return domain.SignalRow{Signal: sig, Outcome: &domain.SignalOutcome{Win: win}}
}

func TestNewStoreLoadsPersisted(t *testing.T) {
	persisted := domain.DefaultThresholds()
	persisted.MinOnChainScore = 55
	persisted.LearningMode = false

	defaults := domain.DefaultThresholds() // learning mode on

	s := NewStore(context.Background(), &memPersister{stored: &persisted}, defaults)
	cur := s.Current()
	require.Equal(t, 55.0, cur.MinOnChainScore)
	// Learning mode comes from config, not from the persisted row.
	require.True(t, cur.LearningMode)
}

func TestApplyPersistsAndSwaps(t *testing.T) {
	p := &memPersister{}
	s := NewStore(context.Background(), p, domain.DefaultThresholds())

	next, err := s.Apply(context.Background(), []Recommendation{
		{Factor: "min_onchain_score", Current: 30, Proposed: 42},
		{Factor: "not_a_factor", Proposed: 99},
	})
	require.NoError(t, err)
	require.Equal(t, 42.0, next.MinOnChainScore)
	require.Equal(t, 42.0, s.Current().MinOnChainScore)
	require.NotNil(t, p.stored)
	require.Equal(t, 42.0, p.stored.MinOnChainScore)
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore(context.Background(), &memPersister{}, domain.DefaultThresholds())

	snap := s.Current()
	_, err := s.Apply(context.Background(), []Recommendation{
		{Factor: "min_safety_score", Proposed: 99},
	})
	require.NoError(t, err)

	// The copy taken before Apply is untouched.
	require.Equal(t, 25.0, snap.MinSafetyScore)
	require.Equal(t, 99.0, s.Current().MinSafetyScore)
}

func TestOptimizeProposesTighterFloor(t *testing.T) {
	p := &memPersister{}
	// Low-scoring signals mostly lose, high-scoring mostly win.
	for i := 0; i < 10; i++ {
		p.rows = append(p.rows, row(25, i < 2)) // 20% win
		p.rows = append(p.rows, row(70, i < 8)) // 80% win
	}

	s := NewStore(context.Background(), p, domain.DefaultThresholds())
	result, err := s.Optimize(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 20, result.SignalsAnalyzed)
	require.False(t, result.Applied)

	var found *Recommendation
	for i := range result.Recommendations {
		if result.Recommendations[i].Factor == "min_onchain_score" {
			found = &result.Recommendations[i]
		}
	}
	require.NotNil(t, found)
	require.Greater(t, found.Proposed, 30.0)
	require.InDelta(t, 0.2, found.WinRateLow, 0.01)
	require.InDelta(t, 0.8, found.WinRateHigh, 0.01)
}

func TestOptimizeApplyNow(t *testing.T) {
	p := &memPersister{}
	for i := 0; i < 10; i++ {
		p.rows = append(p.rows, row(25, i < 2))
		p.rows = append(p.rows, row(70, i < 8))
	}

	s := NewStore(context.Background(), p, domain.DefaultThresholds())
	result, err := s.Optimize(context.Background(), true)
	require.NoError(t, err)
	require.True(t, result.Applied)
	require.Greater(t, s.Current().MinOnChainScore, 30.0)
}

func TestOptimizeTooFewOutcomes(t *testing.T) {
	p := &memPersister{rows: []domain.SignalRow{row(50, true), row(60, false)}}
	s := NewStore(context.Background(), p, domain.DefaultThresholds())

	result, err := s.Optimize(context.Background(), true)
	require.NoError(t, err)
	require.Empty(t, result.Recommendations)
	require.False(t, result.Applied)
}
