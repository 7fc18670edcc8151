package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
)

// StandingsInvalidator is notified after a participant's totals change so
// cached leaderboards can be dropped. Implementations must be best-effort.
type StandingsInvalidator interface {
	Invalidate(ctx context.Context, challengeID string)
}

// SyncResult is the outcome of one batch sync call.
type SyncResult struct {
	RecordsAdded   int
	RecordsSkipped int
	// ReconcileErr carries a downstream aggregation/reconciliation failure
	// as a diagnostic. Ingestion already succeeded when it is set; callers
	// must not fail the sync response because of it.
	ReconcileErr error
}

// SyncService orchestrates the pipeline: normalize incoming samples, then
// for every active step challenge the user participates in, aggregate per
// day, reconcile each day's value, and recalculate standings.
type SyncService struct {
	stores       Stores
	normalizer   *Normalizer
	aggregator   *Aggregator
	reconciler   *Reconciler
	recalculator *Recalculator
	invalidator  StandingsInvalidator
	providerTag  string
	locks        *keyedLock
	logger       *log.Logger
}

// Option configures optional behaviour for the SyncService.
type Option func(*SyncService)

// WithLogger overrides the default logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *SyncService) { s.logger = logger }
}

// WithStandingsInvalidator registers a cache invalidation hook.
func WithStandingsInvalidator(invalidator StandingsInvalidator) Option {
	return func(s *SyncService) { s.invalidator = invalidator }
}

// WithProviderTag sets the provider identifier stamped on reconciled
// activities. Defaults to "apple_health", the only provider currently
// pushing raw samples through this path.
func WithProviderTag(tag string) Option {
	return func(s *SyncService) { s.providerTag = tag }
}

// NewSyncService wires the pipeline stages over the given stores.
func NewSyncService(stores Stores, ranking SourceRanking, opts ...Option) *SyncService {
	s := &SyncService{
		stores:      stores,
		providerTag: "apple_health",
		locks:       newKeyedLock(),
		logger:      log.New(log.Writer(), "[sync] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.normalizer = NewNormalizer(stores.Samples, s.logger)
	s.aggregator = NewAggregator(stores.Samples)
	s.reconciler = NewReconciler(stores.Activities, ranking)
	s.recalculator = NewRecalculator(stores.Activities, stores.Participants)
	return s
}

// Sync ingests a batch of samples for one user and then refreshes the
// user's challenge state. The returned error is reserved for catastrophic
// failures (unknown user, store unreachable); downstream reconciliation
// problems surface only on SyncResult.ReconcileErr.
func (s *SyncService) Sync(ctx context.Context, userID string, candidates []SampleCandidate) (SyncResult, error) {
	exists, err := s.stores.Users.UserExists(ctx, userID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("user lookup: %w", err)
	}
	if !exists {
		return SyncResult{}, ErrUserNotFound
	}

	ingested, err := s.normalizer.Ingest(ctx, userID, candidates)
	if err != nil {
		return SyncResult{}, err
	}

	result := SyncResult{
		RecordsAdded:   ingested.Added,
		RecordsSkipped: ingested.Skipped,
	}

	// Raw data durability outranks freshness of derived standings: a
	// failure past this point never fails the sync response.
	if err := s.SyncChallenges(ctx, userID); err != nil {
		s.logger.Printf("challenge sync failed (user=%s): %v", userID, err)
		result.ReconcileErr = err
	}
	return result, nil
}

// SyncChallenges re-runs aggregation, reconciliation, and recalculation for
// every active step challenge the user participates in. Exposed separately
// so derived state can be rebuilt without re-ingesting samples.
func (s *SyncService) SyncChallenges(ctx context.Context, userID string) error {
	challenges, err := s.stores.Challenges.ActiveChallengesForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list active challenges: %w", err)
	}

	var errs []error
	for _, challenge := range challenges {
		if challenge.ActivityType != string(MeasurementSteps) {
			continue
		}
		if err := s.syncChallenge(ctx, userID, challenge); err != nil {
			s.logger.Printf("challenge %s sync failed (user=%s): %v", challenge.ID, userID, err)
			errs = append(errs, fmt.Errorf("challenge %s: %w", challenge.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *SyncService) syncChallenge(ctx context.Context, userID string, challenge Challenge) error {
	release := s.locks.Lock(userID + "|" + challenge.ID)
	defer release()

	daily, err := s.aggregator.DailySteps(ctx, userID, challenge)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	if len(daily) == 0 {
		return nil
	}

	days := make([]string, 0, len(daily))
	for day := range daily {
		days = append(days, day)
	}
	sort.Strings(days)

	var errs []error
	for _, day := range days {
		if _, err := s.reconciler.MergeDay(ctx, challenge.ID, userID, day, daily[day], s.providerTag); err != nil {
			errs = append(errs, fmt.Errorf("reconcile %s: %w", day, err))
		}
	}

	if _, err := s.recalculator.Recalculate(ctx, challenge.ID, userID); err != nil {
		errs = append(errs, fmt.Errorf("recalculate: %w", err))
	} else if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, challenge.ID)
	}
	return errors.Join(errs...)
}
