package approval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUrgencyScoreMultipliers(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	createdAt := now.Add(-10 * time.Hour)

	tests := []struct {
		tier   UrgencyTier
		expect float64
	}{
		{TierUrgent, 40},
		{TierHigh, 30},
		{TierMedium, 20},
		{TierLow, 10},
	}

	for _, tt := range tests {
		score := UrgencyScore(tt.tier, createdAt, now)
		require.Equal(t, tt.expect, score, "tier %s", tt.tier)
	}
}

func TestUrgencyScoreUnknownTierFallsBackToMedium(t *testing.T) {
	now := time.Now()
	createdAt := now.Add(-5 * time.Hour)

	require.Equal(t,
		UrgencyScore(TierMedium, createdAt, now),
		UrgencyScore(UrgencyTier("whatever"), createdAt, now))
}

func TestUrgencyScoreGrowsWithAge(t *testing.T) {
	now := time.Now()

	young := UrgencyScore(TierHigh, now.Add(-1*time.Hour), now)
	old := UrgencyScore(TierHigh, now.Add(-48*time.Hour), now)
	require.Greater(t, old, young)

	// 同龄条目高档位得分更高
	require.Greater(t,
		UrgencyScore(TierUrgent, now.Add(-3*time.Hour), now),
		UrgencyScore(TierLow, now.Add(-3*time.Hour), now))
}

func TestUrgencyScoreFutureCreatedAtClampsToZero(t *testing.T) {
	now := time.Now()
	score := UrgencyScore(TierUrgent, now.Add(2*time.Hour), now)
	require.Equal(t, 0.0, score)
}

func TestDisplayScore(t *testing.T) {
	require.Equal(t, 120, DisplayScore(TierHigh))
	require.Equal(t, 80, DisplayScore(TierMedium))
	require.Equal(t, 40, DisplayScore(TierLow))
	// urgent 档位无静态映射，取默认值
	require.Equal(t, 60, DisplayScore(TierUrgent))
	require.Equal(t, 60, DisplayScore(UrgencyTier("unknown")))
}

func TestDisplayScoreIgnoresAge(t *testing.T) {
	// 静态展示分与连续紧急度分是两套独立口径
	now := time.Now()
	require.Equal(t, DisplayScore(TierHigh), DisplayScore(TierHigh))
	require.NotEqual(t,
		float64(DisplayScore(TierHigh)),
		UrgencyScore(TierHigh, now.Add(-40*time.Hour), now))
}
