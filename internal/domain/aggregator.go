package domain

import (
	"context"
	"time"
)

// calendarDayFormat keys daily buckets. Dates are derived in UTC; multi
// timezone travel is not modelled.
const calendarDayFormat = "2006-01-02"

// CalendarDay returns the UTC date-only key for a timestamp.
func CalendarDay(ts time.Time) string {
	return ts.UTC().Format(calendarDayFormat)
}

// Aggregator folds raw samples into one value per calendar day.
type Aggregator struct {
	samples SampleStore
}

// NewAggregator constructs an Aggregator.
func NewAggregator(samples SampleStore) *Aggregator {
	return &Aggregator{samples: samples}
}

// DailySteps returns the per-day step totals for a user within the
// challenge window, keyed by YYYY-MM-DD. An empty map means no samples fell
// inside the window and the challenge should be skipped.
func (a *Aggregator) DailySteps(ctx context.Context, userID string, challenge Challenge) (map[string]int, error) {
	samples, err := a.samples.ListSamples(ctx, userID, MeasurementSteps, challenge.StartDate, challenge.EndDate)
	if err != nil {
		return nil, err
	}
	return reduceDailyMax(samples), nil
}

// reduceDailyMax buckets samples by the calendar day of their start time and
// keeps the maximum value per bucket. Overlapping samples from the same
// device restate a cumulative count rather than add to it, so summing would
// double count.
func reduceDailyMax(samples []RawSample) map[string]int {
	daily := make(map[string]int, len(samples))
	for _, sample := range samples {
		day := CalendarDay(sample.StartTime)
		value := int(sample.Value)
		if current, ok := daily[day]; !ok || value > current {
			daily[day] = value
		}
	}
	return daily
}
