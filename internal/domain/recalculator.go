package domain

import (
	"context"
	"time"

	"example.com/challengesync/internal/observability"
)

// Recalculator recomputes a participant's challenge totals from the full
// set of their daily activity rows. The recompute is wholesale rather than
// incremental: an O(activities) scan buys consistency at any point in time.
type Recalculator struct {
	activities   ActivityStore
	participants ParticipantStore
}

// NewRecalculator constructs a Recalculator.
func NewRecalculator(activities ActivityStore, participants ParticipantStore) *Recalculator {
	return &Recalculator{activities: activities, participants: participants}
}

// Recalculate rebuilds and stores the totals for one participant. When the
// participant has no activity rows nothing is written and nil totals are
// returned.
func (c *Recalculator) Recalculate(ctx context.Context, challengeID, userID string) (*ParticipantTotals, error) {
	activities, err := c.activities.ListActivities(ctx, challengeID, userID)
	if err != nil {
		return nil, err
	}
	if len(activities) == 0 {
		return nil, nil
	}

	totals := ComputeTotals(challengeID, userID, activities)
	if err := c.participants.UpdateTotals(ctx, totals); err != nil {
		return nil, err
	}
	observability.RecordTotalsRecalculated(time.Now().UTC())
	return &totals, nil
}

// ComputeTotals derives totals from a set of daily activity rows.
//
// Step totals re-aggregate by day with max before summing. The reconciler
// keeps one row per day, but this guards the projection if that invariant
// is ever violated upstream.
func ComputeTotals(challengeID, userID string, activities []DailyActivity) ParticipantTotals {
	totals := ParticipantTotals{
		ChallengeID:   challengeID,
		UserID:        userID,
		ActivityCount: len(activities),
	}

	dailySteps := make(map[string]int, len(activities))
	var lastDate string
	for _, activity := range activities {
		totals.TotalMiles += activity.Distance
		totals.TotalDuration += activity.DurationMin

		if activity.Steps > 0 {
			if current, ok := dailySteps[activity.ActivityDate]; !ok || activity.Steps > current {
				dailySteps[activity.ActivityDate] = activity.Steps
			}
		}

		// YYYY-MM-DD strings order chronologically.
		if activity.ActivityDate > lastDate {
			lastDate = activity.ActivityDate
		}
	}

	for _, steps := range dailySteps {
		totals.TotalSteps += steps
	}
	if lastDate != "" {
		totals.LastActivityDate = &lastDate
	}
	return totals
}
