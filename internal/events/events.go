// Package events defines the wire payloads exchanged over Kafka and shared
// with the HTTP sync request body.
package events

import (
	"time"

	"example.com/challengesync/internal/domain"
)

// SampleRecord is one health sample inside a batch payload. Value is a
// pointer so consumers can distinguish an absent value from zero.
type SampleRecord struct {
	MeasurementType string    `json:"measurement_type"`
	Value           *float64  `json:"value"`
	Unit            string    `json:"unit,omitempty"`
	SourceName      string    `json:"source_name,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
}

// Candidate converts the wire record into its domain form. Validation is
// left to the normalizer.
func (r SampleRecord) Candidate() domain.SampleCandidate {
	return domain.SampleCandidate{
		Type:       domain.MeasurementType(r.MeasurementType),
		Value:      r.Value,
		Unit:       r.Unit,
		SourceName: r.SourceName,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
	}
}

// SampleBatchReceived is consumed from the health_samples topic and carries
// one user's batch of provider samples.
type SampleBatchReceived struct {
	UserID  string         `json:"user_id"`
	Samples []SampleRecord `json:"samples"`
}

// ActivityReconciled is emitted whenever a daily activity row is created or
// overwritten by the reconciler.
type ActivityReconciled struct {
	ActivityID   string    `json:"activity_id"`
	ChallengeID  string    `json:"challenge_id"`
	UserID       string    `json:"user_id"`
	ActivityDate string    `json:"activity_date"`
	Steps        int       `json:"steps"`
	Source       string    `json:"source"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// StandingsUpdated is emitted after a participant's totals are recomputed.
type StandingsUpdated struct {
	ChallengeID      string    `json:"challenge_id"`
	UserID           string    `json:"user_id"`
	TotalSteps       int       `json:"total_steps"`
	TotalMiles       float64   `json:"total_miles"`
	TotalDuration    int       `json:"total_duration"`
	ActivityCount    int       `json:"activity_count"`
	LastActivityDate *string   `json:"last_activity_date,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}
