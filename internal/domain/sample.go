package domain

import "time"

// MeasurementType categorises a health sample.
type MeasurementType string

const (
	MeasurementSteps        MeasurementType = "steps"
	MeasurementDistance     MeasurementType = "distance"
	MeasurementActiveEnergy MeasurementType = "active_energy"
	MeasurementWorkout      MeasurementType = "workout"
)

// Defaults applied when a candidate omits optional fields.
const (
	DefaultUnit   = "count"
	DefaultSource = "unknown provider"
)

// RawSample is a stored health measurement. Samples are immutable once
// persisted; corrections arrive as new samples and are resolved downstream.
type RawSample struct {
	ID         string
	UserID     string
	Type       MeasurementType
	Value      float64
	Unit       string
	SourceName string
	StartTime  time.Time
	EndTime    time.Time
	CreatedAt  time.Time
}

// SampleCandidate is an unvalidated sample as received from a provider sync.
// Value is a pointer so that an absent value can be told apart from zero.
type SampleCandidate struct {
	Type       MeasurementType
	Value      *float64
	Unit       string
	SourceName string
	StartTime  time.Time
	EndTime    time.Time
}

// Valid reports whether all required fields are present.
func (c SampleCandidate) Valid() bool {
	if c.Type == "" || c.Value == nil || *c.Value < 0 {
		return false
	}
	return !c.StartTime.IsZero() && !c.EndTime.IsZero()
}
