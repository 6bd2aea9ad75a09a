package gates

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memerun/memerun/internal/domain"
)

func TestRouteByAge(t *testing.T) {
	_, ok := Route(1.9, 0)
	require.False(t, ok)

	track, ok := Route(2, 0)
	require.True(t, ok)
	require.Equal(t, domain.TrackEarlyQuality, track)

	track, ok = Route(44.9, 0)
	require.True(t, ok)
	require.Equal(t, domain.TrackEarlyQuality, track)

	// Transition zone and beyond both route to the proven track.
	track, _ = Route(45, 0)
	require.Equal(t, domain.TrackProvenRunner, track)
	track, _ = Route(1440, 0)
	require.Equal(t, domain.TrackProvenRunner, track)
}

func TestRouteHonorsConfiguredAgeFloor(t *testing.T) {
	_, ok := Route(5, 10)
	require.False(t, ok)

	track, ok := Route(10, 10)
	require.True(t, ok)
	require.Equal(t, domain.TrackEarlyQuality, track)

	// A configured floor below two minutes never loosens the hard floor.
	_, ok = Route(1.5, 1)
	require.False(t, ok)
}

func TestProvenRunnerGrowthGate(t *testing.T) {
	flat := domain.MomentumSnapshot{HolderGrowthRate: 0}
	growing := domain.MomentumSnapshot{HolderGrowthRate: 0.05}

	ok, reason := CheckTrack(domain.TrackProvenRunner, false, flat, 80, 20)
	require.False(t, ok)
	require.Contains(t, reason, "holder growth")

	ok, _ = CheckTrack(domain.TrackProvenRunner, false, growing, 80, 20)
	require.True(t, ok)

	// Learning mode drops the growth floor to zero.
	ok, _ = CheckTrack(domain.TrackProvenRunner, true, flat, 80, 20)
	require.True(t, ok)
}

func TestEarlyQualityGates(t *testing.T) {
	snap := domain.MomentumSnapshot{}

	ok, _ := CheckTrack(domain.TrackEarlyQuality, false, snap, 72, 30)
	require.True(t, ok)

	ok, reason := CheckTrack(domain.TrackEarlyQuality, false, snap, 45, 30)
	require.False(t, ok)
	require.Contains(t, reason, "safety")

	ok, reason = CheckTrack(domain.TrackEarlyQuality, false, snap, 72, 60)
	require.False(t, ok)
	require.Contains(t, reason, "bundle")

	// Learning mode admits what production rejects.
	ok, _ = CheckTrack(domain.TrackEarlyQuality, true, snap, 45, 60)
	require.True(t, ok)
}

func TestEffectiveMinScore(t *testing.T) {
	th := domain.DefaultThresholds()
	th.MinOnChainScore = 45

	th.LearningMode = true
	require.Equal(t, 20.0, EffectiveMinScore(th))

	th.LearningMode = false
	require.Equal(t, 45.0, EffectiveMinScore(th))

	// An already-low threshold is not raised to 20.
	th.LearningMode = true
	th.MinOnChainScore = 15
	require.Equal(t, 15.0, EffectiveMinScore(th))
}

func TestRecommendationBlocks(t *testing.T) {
	require.True(t, RecommendationBlocks(domain.StrongAvoid, true))
	require.True(t, RecommendationBlocks(domain.StrongAvoid, false))
	require.True(t, RecommendationBlocks(domain.Avoid, false))
	require.False(t, RecommendationBlocks(domain.Avoid, true))
	require.False(t, RecommendationBlocks(domain.Watch, false))
}

func TestRiskGate(t *testing.T) {
	require.True(t, RiskGate(domain.RiskCritical, true))
	require.True(t, RiskGate(domain.RiskHigh, false))
	require.False(t, RiskGate(domain.RiskHigh, true))
	require.False(t, RiskGate(domain.RiskMedium, false))
}

func TestWarningGate(t *testing.T) {
	warnings := []string{
		"mint authority active",
		"thin liquidity",
		"concentrated holder base",
		"no KOL activity",
		"clustered early buyers",
	}

	// Four serious after dropping the KOL note.
	require.True(t, WarningGateBlocks(warnings, false))
	require.False(t, WarningGateBlocks(warnings, true))
	require.False(t, WarningGateBlocks(warnings[:3], false))
}
