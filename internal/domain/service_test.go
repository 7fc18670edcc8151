package domain_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/challengesync/internal/domain"
	"example.com/challengesync/internal/persistence/memory"
)

func newSyncFixture(t *testing.T) (*memory.Store, *domain.SyncService) {
	t.Helper()
	store := memory.NewStore()
	store.AddUser("user-1")
	store.AddChallenge(marchChallenge())
	store.AddParticipation("challenge-1", "user-1")

	service := domain.NewSyncService(store.Stores(), domain.DefaultSourceRanking(), domain.WithLogger(testLogger()))
	return store, service
}

func TestSyncEndToEnd(t *testing.T) {
	store, service := newSyncFixture(t)

	day1 := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)

	result, err := service.Sync(context.Background(), "user-1", []domain.SampleCandidate{
		stepsCandidate(day1, day1.Add(time.Hour), 3000),
		stepsCandidate(day1.Add(2*time.Hour), day1.Add(3*time.Hour), 7500),
		stepsCandidate(day2, day2.Add(time.Hour), 4000),
	})
	require.NoError(t, err)
	require.NoError(t, result.ReconcileErr)
	require.Equal(t, 3, result.RecordsAdded)
	require.Equal(t, 0, result.RecordsSkipped)

	activity, err := store.FindActivityByDay(context.Background(), "challenge-1", "user-1", "2026-03-02")
	require.NoError(t, err)
	require.NotNil(t, activity)
	require.Equal(t, 7500, activity.Steps)
	require.Equal(t, "apple_health", activity.Source)

	totals, ok := store.TotalsFor("challenge-1", "user-1")
	require.True(t, ok)
	require.Equal(t, 11500, totals.TotalSteps)
	require.Equal(t, 2, totals.ActivityCount)
	require.Equal(t, "2026-03-03", *totals.LastActivityDate)
}

func TestSyncIsIdempotentAcrossRetries(t *testing.T) {
	store, service := newSyncFixture(t)

	day := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	batch := []domain.SampleCandidate{stepsCandidate(day, day.Add(time.Hour), 7500)}

	first, err := service.Sync(context.Background(), "user-1", batch)
	require.NoError(t, err)
	require.Equal(t, 1, first.RecordsAdded)

	second, err := service.Sync(context.Background(), "user-1", batch)
	require.NoError(t, err)
	require.Equal(t, 0, second.RecordsAdded)
	require.Equal(t, 1, second.RecordsSkipped)

	totals, ok := store.TotalsFor("challenge-1", "user-1")
	require.True(t, ok)
	require.Equal(t, 7500, totals.TotalSteps)
}

func TestSyncRejectsUnknownUser(t *testing.T) {
	_, service := newSyncFixture(t)

	_, err := service.Sync(context.Background(), "nobody", nil)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestSyncSkipsNonStepChallenges(t *testing.T) {
	store, service := newSyncFixture(t)
	store.AddChallenge(domain.Challenge{
		ID:           "challenge-miles",
		Name:         "March Miles",
		ActivityType: "distance",
		Status:       domain.ChallengeStatusActive,
		StartDate:    time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, time.March, 31, 23, 59, 59, 0, time.UTC),
	})
	store.AddParticipation("challenge-miles", "user-1")

	day := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	result, err := service.Sync(context.Background(), "user-1", []domain.SampleCandidate{
		stepsCandidate(day, day.Add(time.Hour), 7500),
	})
	require.NoError(t, err)
	require.NoError(t, result.ReconcileErr)

	activity, err := store.FindActivityByDay(context.Background(), "challenge-miles", "user-1", "2026-03-02")
	require.NoError(t, err)
	require.Nil(t, activity)
}

func TestSyncWithoutSamplesInWindowWritesNothing(t *testing.T) {
	store, service := newSyncFixture(t)

	outside := time.Date(2026, time.January, 10, 8, 0, 0, 0, time.UTC)
	result, err := service.Sync(context.Background(), "user-1", []domain.SampleCandidate{
		stepsCandidate(outside, outside.Add(time.Hour), 9000),
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.RecordsAdded)

	totals, ok := store.TotalsFor("challenge-1", "user-1")
	require.True(t, ok)
	require.Zero(t, totals.TotalSteps)
	require.Zero(t, totals.ActivityCount)
}

func TestSyncIsolatesDownstreamFailures(t *testing.T) {
	store := memory.NewStore()
	store.AddUser("user-1")
	store.AddChallenge(marchChallenge())
	store.AddParticipation("challenge-1", "user-1")

	stores := store.Stores()
	stores.Activities = &failingActivityStore{ActivityStore: store, err: errors.New("activity table offline")}
	service := domain.NewSyncService(stores, domain.DefaultSourceRanking(), domain.WithLogger(testLogger()))

	day := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	result, err := service.Sync(context.Background(), "user-1", []domain.SampleCandidate{
		stepsCandidate(day, day.Add(time.Hour), 7500),
	})

	// Ingestion succeeded; the downstream failure is diagnostic only.
	require.NoError(t, err)
	require.Equal(t, 1, result.RecordsAdded)
	require.Error(t, result.ReconcileErr)
	require.Len(t, store.Samples(), 1)
}

func TestSyncNotifiesStandingsInvalidator(t *testing.T) {
	store := memory.NewStore()
	store.AddUser("user-1")
	store.AddChallenge(marchChallenge())
	store.AddParticipation("challenge-1", "user-1")

	invalidator := &recordingInvalidator{}
	service := domain.NewSyncService(store.Stores(), domain.DefaultSourceRanking(),
		domain.WithLogger(testLogger()),
		domain.WithStandingsInvalidator(invalidator),
	)

	day := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	_, err := service.Sync(context.Background(), "user-1", []domain.SampleCandidate{
		stepsCandidate(day, day.Add(time.Hour), 7500),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"challenge-1"}, invalidator.invalidated())
}

func TestConcurrentSyncsPreserveMonotonicSteps(t *testing.T) {
	store, service := newSyncFixture(t)

	day := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			start := day.Add(time.Duration(offset) * time.Minute)
			_, err := service.Sync(context.Background(), "user-1", []domain.SampleCandidate{
				stepsCandidate(start, start.Add(time.Hour), float64(1000*(offset+1))),
			})
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	activity, err := store.FindActivityByDay(context.Background(), "challenge-1", "user-1", "2026-03-02")
	require.NoError(t, err)
	require.NotNil(t, activity)
	require.Equal(t, 8000, activity.Steps)

	totals, ok := store.TotalsFor("challenge-1", "user-1")
	require.True(t, ok)
	require.Equal(t, 8000, totals.TotalSteps)
}

type failingActivityStore struct {
	domain.ActivityStore
	err error
}

func (s *failingActivityStore) InsertActivity(context.Context, domain.DailyActivity) error {
	return s.err
}

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, challengeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, challengeID)
}

func (r *recordingInvalidator) invalidated() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}
