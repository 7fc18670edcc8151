package domain_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/challengesync/internal/domain"
	"example.com/challengesync/internal/persistence/memory"
)

func seedActivity(t *testing.T, store *memory.Store, id, day string, distance float64, duration, steps int) {
	t.Helper()
	err := store.InsertActivity(context.Background(), domain.DailyActivity{
		ID:           id,
		ChallengeID:  "challenge-1",
		UserID:       "user-1",
		ActivityDate: day,
		Distance:     distance,
		DurationMin:  duration,
		Steps:        steps,
		Source:       "apple_health",
	})
	require.NoError(t, err)
}

func TestRecalculateBuildsTotalsFromActivities(t *testing.T) {
	store := memory.NewStore()
	store.AddParticipation("challenge-1", "user-1")
	recalculator := domain.NewRecalculator(store, store)

	seedActivity(t, store, "act-1", "2026-03-02", 2.5, 30, 7500)
	seedActivity(t, store, "act-2", "2026-03-03", 0, 0, 4000)
	seedActivity(t, store, "act-3", "2026-03-01", 1.0, 15, 0)

	totals, err := recalculator.Recalculate(context.Background(), "challenge-1", "user-1")
	require.NoError(t, err)
	require.NotNil(t, totals)

	require.Equal(t, 3.5, totals.TotalMiles)
	require.Equal(t, 45, totals.TotalDuration)
	require.Equal(t, 11500, totals.TotalSteps)
	require.Equal(t, 3, totals.ActivityCount)
	require.NotNil(t, totals.LastActivityDate)
	require.Equal(t, "2026-03-03", *totals.LastActivityDate)

	stored, ok := store.TotalsFor("challenge-1", "user-1")
	require.True(t, ok)
	require.Equal(t, *totals, stored)
}

func TestRecalculateSkipsWriteWhenNoActivities(t *testing.T) {
	store := memory.NewStore()
	store.AddParticipation("challenge-1", "user-1")
	recalculator := domain.NewRecalculator(store, store)

	totals, err := recalculator.Recalculate(context.Background(), "challenge-1", "user-1")
	require.NoError(t, err)
	require.Nil(t, totals)

	// The zeroed participation row is untouched, not overwritten.
	stored, ok := store.TotalsFor("challenge-1", "user-1")
	require.True(t, ok)
	require.Zero(t, stored.TotalSteps)
	require.Nil(t, stored.LastActivityDate)
}

func TestComputeTotalsCollapsesDuplicateDaysWithMax(t *testing.T) {
	activities := []domain.DailyActivity{
		{ActivityDate: "2026-03-02", Steps: 7500},
		{ActivityDate: "2026-03-02", Steps: 9000},
		{ActivityDate: "2026-03-03", Steps: 4000},
	}

	totals := domain.ComputeTotals("challenge-1", "user-1", activities)
	require.Equal(t, 13000, totals.TotalSteps)
	require.Equal(t, 3, totals.ActivityCount)
}

func TestComputeTotalsIgnoresZeroStepDays(t *testing.T) {
	activities := []domain.DailyActivity{
		{ActivityDate: "2026-03-02", Steps: 0, Distance: 2.0, DurationMin: 20},
		{ActivityDate: "2026-03-03", Steps: 4000},
	}

	totals := domain.ComputeTotals("challenge-1", "user-1", activities)
	require.Equal(t, 4000, totals.TotalSteps)
	require.Equal(t, 2.0, totals.TotalMiles)
	require.Equal(t, 20, totals.TotalDuration)
	require.Equal(t, 2, totals.ActivityCount)
	require.Equal(t, "2026-03-03", *totals.LastActivityDate)
}
