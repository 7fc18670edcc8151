package domain_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/challengesync/internal/domain"
	"example.com/challengesync/internal/persistence/memory"
)

func TestMergeDayInsertsWhenNoRowExists(t *testing.T) {
	store := memory.NewStore()
	reconciler := domain.NewReconciler(store, domain.DefaultSourceRanking())

	decision, err := reconciler.MergeDay(context.Background(), "challenge-1", "user-1", "2026-03-02", 7500, "apple_health")
	require.NoError(t, err)
	require.Equal(t, domain.DecisionInserted, decision)

	stored, err := store.FindActivityByDay(context.Background(), "challenge-1", "user-1", "2026-03-02")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, 7500, stored.Steps)
	require.Equal(t, "apple_health", stored.Source)
	require.Equal(t, "7,500 steps from Apple Health", stored.Notes)
	require.Zero(t, stored.Distance)
	require.Zero(t, stored.DurationMin)
}

func TestMergeDayTrustOverrideWinsWithLowerValue(t *testing.T) {
	store := memory.NewStore()
	reconciler := domain.NewReconciler(store, domain.DefaultSourceRanking())

	_, err := reconciler.MergeDay(context.Background(), "challenge-1", "user-1", "2026-03-02", 10000, "fitbit")
	require.NoError(t, err)

	decision, err := reconciler.MergeDay(context.Background(), "challenge-1", "user-1", "2026-03-02", 5000, "garmin")
	require.NoError(t, err)
	require.Equal(t, domain.DecisionTrustOverride, decision)

	stored, err := store.FindActivityByDay(context.Background(), "challenge-1", "user-1", "2026-03-02")
	require.NoError(t, err)
	require.Equal(t, 5000, stored.Steps)
	require.Equal(t, "garmin", stored.Source)
}

func TestMergeDayLowerTrustWinsOnlyByStrictImprovement(t *testing.T) {
	store := memory.NewStore()
	reconciler := domain.NewReconciler(store, domain.DefaultSourceRanking())

	_, err := reconciler.MergeDay(context.Background(), "challenge-1", "user-1", "2026-03-02", 6000, "strava")
	require.NoError(t, err)

	// Equal value from a less trusted provider loses.
	decision, err := reconciler.MergeDay(context.Background(), "challenge-1", "user-1", "2026-03-02", 6000, "manual")
	require.NoError(t, err)
	require.Equal(t, domain.DecisionUnchanged, decision)

	// A strictly larger value wins even from a less trusted provider.
	decision, err = reconciler.MergeDay(context.Background(), "challenge-1", "user-1", "2026-03-02", 6001, "manual")
	require.NoError(t, err)
	require.Equal(t, domain.DecisionValueUpdate, decision)

	stored, err := store.FindActivityByDay(context.Background(), "challenge-1", "user-1", "2026-03-02")
	require.NoError(t, err)
	require.Equal(t, 6001, stored.Steps)
	require.Equal(t, "manual", stored.Source)
}

func TestMergeDayStepsNeverDecreaseWithinSameTrust(t *testing.T) {
	store := memory.NewStore()
	reconciler := domain.NewReconciler(store, domain.DefaultSourceRanking())

	values := []int{3000, 8000, 5000, 8000, 2000}
	highWater := 0
	for _, steps := range values {
		_, err := reconciler.MergeDay(context.Background(), "challenge-1", "user-1", "2026-03-02", steps, "apple_health")
		require.NoError(t, err)

		if steps > highWater {
			highWater = steps
		}
		stored, err := store.FindActivityByDay(context.Background(), "challenge-1", "user-1", "2026-03-02")
		require.NoError(t, err)
		require.Equal(t, highWater, stored.Steps)
	}
}

func TestMergeDayPreservesManualDistanceAndDuration(t *testing.T) {
	store := memory.NewStore()
	reconciler := domain.NewReconciler(store, domain.DefaultSourceRanking())

	seeded := domain.DailyActivity{
		ID:           "act-1",
		ChallengeID:  "challenge-1",
		UserID:       "user-1",
		ActivityDate: "2026-03-02",
		Distance:     3.5,
		DurationMin:  45,
		Steps:        1000,
		Source:       "manual",
	}
	require.NoError(t, store.InsertActivity(context.Background(), seeded))

	decision, err := reconciler.MergeDay(context.Background(), "challenge-1", "user-1", "2026-03-02", 9000, "apple_health")
	require.NoError(t, err)
	require.Equal(t, domain.DecisionTrustOverride, decision)

	stored, err := store.FindActivityByDay(context.Background(), "challenge-1", "user-1", "2026-03-02")
	require.NoError(t, err)
	require.Equal(t, 9000, stored.Steps)
	require.Equal(t, 3.5, stored.Distance)
	require.Equal(t, 45, stored.DurationMin)
}

func TestMergeDayRespectsInjectedRanking(t *testing.T) {
	store := memory.NewStore()
	ranking := domain.DefaultSourceRanking().WithOverrides(map[string]int{"manual": 0})
	reconciler := domain.NewReconciler(store, ranking)

	_, err := reconciler.MergeDay(context.Background(), "challenge-1", "user-1", "2026-03-02", 10000, "garmin")
	require.NoError(t, err)

	decision, err := reconciler.MergeDay(context.Background(), "challenge-1", "user-1", "2026-03-02", 100, "manual")
	require.NoError(t, err)
	require.Equal(t, domain.DecisionTrustOverride, decision)
}
