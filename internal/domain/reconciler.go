package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"example.com/challengesync/internal/observability"
)

// ReconcileDecision names the outcome of merging one day's value.
type ReconcileDecision string

const (
	// DecisionInserted means no row existed and one was created.
	DecisionInserted ReconcileDecision = "inserted"
	// DecisionTrustOverride means a more trusted provider replaced the
	// stored value regardless of magnitude.
	DecisionTrustOverride ReconcileDecision = "trust_override"
	// DecisionValueUpdate means an equally or less trusted provider won by
	// presenting a strictly larger count.
	DecisionValueUpdate ReconcileDecision = "value_update"
	// DecisionUnchanged means the stored row stands.
	DecisionUnchanged ReconcileDecision = "unchanged"
)

// Reconciler merges a freshly aggregated daily value against whatever row is
// already stored for that day, arbitrated by source trust then by value.
//
// The merge preserves two invariants: the step count for a day never
// decreases, and the source reflects the most trusted provider that ever
// asserted a winning value.
type Reconciler struct {
	activities ActivityStore
	ranking    SourceRanking
	printer    *message.Printer
}

// NewReconciler constructs a Reconciler with the given trust ranking.
func NewReconciler(activities ActivityStore, ranking SourceRanking) *Reconciler {
	return &Reconciler{
		activities: activities,
		ranking:    ranking,
		printer:    message.NewPrinter(language.English),
	}
}

// MergeDay reconciles one (challenge, user, day, steps, source) tuple into
// the stored DailyActivity row and reports the decision taken.
//
// Distance and duration belong to a separate submission path and are never
// touched here.
func (r *Reconciler) MergeDay(ctx context.Context, challengeID, userID, day string, steps int, source string) (ReconcileDecision, error) {
	existing, err := r.activities.FindActivityByDay(ctx, challengeID, userID, day)
	if err != nil {
		return DecisionUnchanged, err
	}

	now := time.Now().UTC()

	if existing == nil {
		activity := DailyActivity{
			ID:           uuid.NewString(),
			ChallengeID:  challengeID,
			UserID:       userID,
			ActivityDate: day,
			Distance:     0,
			DurationMin:  0,
			Steps:        steps,
			Source:       source,
			Notes:        r.printer.Sprintf("%d steps from %s", steps, sourceLabel(source)),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := r.activities.InsertActivity(ctx, activity); err != nil {
			return DecisionUnchanged, err
		}
		observability.RecordReconcileDecision(string(DecisionInserted))
		return DecisionInserted, nil
	}

	decision := r.decide(existing.Steps, existing.Source, steps, source)
	if decision == DecisionUnchanged {
		observability.RecordReconcileDecision(string(DecisionUnchanged))
		return DecisionUnchanged, nil
	}

	updated := *existing
	updated.Steps = steps
	updated.Source = source
	updated.UpdatedAt = now
	if err := r.activities.UpdateActivitySteps(ctx, updated); err != nil {
		return DecisionUnchanged, err
	}
	observability.RecordReconcileDecision(string(decision))
	return decision, nil
}

// decide applies the priority-then-value rule. Trust override bypasses the
// value comparison entirely; same-or-lower trust requires strict improvement.
func (r *Reconciler) decide(existingSteps int, existingSource string, steps int, source string) ReconcileDecision {
	if r.ranking.Outranks(source, existingSource) {
		return DecisionTrustOverride
	}
	if steps > existingSteps {
		return DecisionValueUpdate
	}
	return DecisionUnchanged
}

// sourceLabel renders a provider identifier for human-readable notes,
// e.g. "apple_health" becomes "Apple Health".
func sourceLabel(source string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(source, "_", " "))
}
