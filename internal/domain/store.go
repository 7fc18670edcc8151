package domain

import (
	"context"
	"errors"
	"time"
)

// ErrUserNotFound is returned when a sync request names an unknown user.
var ErrUserNotFound = errors.New("user not found")

// UserStore resolves user existence before a batch is accepted.
type UserStore interface {
	UserExists(ctx context.Context, userID string) (bool, error)
}

// SampleStore persists raw health samples.
type SampleStore interface {
	// SampleExists reports whether a sample with the exact same identity
	// tuple has been stored before.
	SampleExists(ctx context.Context, userID string, mt MeasurementType, start, end time.Time, value float64) (bool, error)
	InsertSample(ctx context.Context, sample RawSample) error
	// ListSamples returns samples of one measurement type whose interval
	// falls inside [from, to], ordered by start time.
	ListSamples(ctx context.Context, userID string, mt MeasurementType, from, to time.Time) ([]RawSample, error)
}

// ChallengeStore exposes the read-only challenge membership view.
type ChallengeStore interface {
	// ActiveChallengesForUser returns the active challenges the user
	// participates in.
	ActiveChallengesForUser(ctx context.Context, userID string) ([]Challenge, error)
}

// ActivityStore persists per-day challenge activity rows.
type ActivityStore interface {
	FindActivityByDay(ctx context.Context, challengeID, userID, day string) (*DailyActivity, error)
	InsertActivity(ctx context.Context, activity DailyActivity) error
	// UpdateActivitySteps overwrites steps and source on an existing row;
	// distance and duration are untouched.
	UpdateActivitySteps(ctx context.Context, activity DailyActivity) error
	ListActivities(ctx context.Context, challengeID, userID string) ([]DailyActivity, error)
}

// ParticipantStore persists derived standings.
type ParticipantStore interface {
	// UpdateTotals replaces the participant's totals row in full.
	UpdateTotals(ctx context.Context, totals ParticipantTotals) error
	ListTotalsByChallenge(ctx context.Context, challengeID string) ([]ParticipantTotals, error)
}

// Stores bundles the record-store collaborators required by the pipeline.
type Stores struct {
	Users        UserStore
	Samples      SampleStore
	Challenges   ChallengeStore
	Activities   ActivityStore
	Participants ParticipantStore
}
