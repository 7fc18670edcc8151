// Package domain implements the multi-source activity reconciliation
// pipeline: sample ingestion, daily aggregation, source reconciliation, and
// participant standings recalculation.
package domain

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"example.com/challengesync/internal/observability"
)

// IngestResult reports the outcome of one batch ingestion.
type IngestResult struct {
	Added   int
	Skipped int
}

// Normalizer validates and deduplicates incoming samples before they are
// persisted. Individual bad records are counted, never fatal.
type Normalizer struct {
	samples SampleStore
	logger  *log.Logger
}

// NewNormalizer constructs a Normalizer.
func NewNormalizer(samples SampleStore, logger *log.Logger) *Normalizer {
	if logger == nil {
		logger = log.New(log.Writer(), "[ingest] ", log.LstdFlags)
	}
	return &Normalizer{samples: samples, logger: logger}
}

// Ingest processes a batch of candidates for one user. A candidate is
// skipped when a required field is missing or when an identical sample
// (user, type, start, end, value) is already stored. Store failures on a
// single record are logged and processing continues; only context
// cancellation aborts the batch.
func (n *Normalizer) Ingest(ctx context.Context, userID string, candidates []SampleCandidate) (IngestResult, error) {
	var result IngestResult

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if !candidate.Valid() {
			n.logger.Printf("skipping invalid sample (user=%s, type=%s)", userID, candidate.Type)
			result.Skipped++
			continue
		}

		exists, err := n.samples.SampleExists(ctx, userID, candidate.Type, candidate.StartTime, candidate.EndTime, *candidate.Value)
		if err != nil {
			n.logger.Printf("dedup check failed (user=%s, type=%s): %v", userID, candidate.Type, err)
			result.Skipped++
			continue
		}
		if exists {
			result.Skipped++
			continue
		}

		sample := RawSample{
			ID:         uuid.NewString(),
			UserID:     userID,
			Type:       candidate.Type,
			Value:      *candidate.Value,
			Unit:       candidate.Unit,
			SourceName: candidate.SourceName,
			StartTime:  candidate.StartTime.UTC(),
			EndTime:    candidate.EndTime.UTC(),
			CreatedAt:  time.Now().UTC(),
		}
		if sample.Unit == "" {
			sample.Unit = DefaultUnit
		}
		if sample.SourceName == "" {
			sample.SourceName = DefaultSource
		}

		if err := n.samples.InsertSample(ctx, sample); err != nil {
			n.logger.Printf("sample insert failed (user=%s, type=%s, start=%s): %v", userID, candidate.Type, candidate.StartTime, err)
			continue
		}
		result.Added++
	}

	observability.RecordSamplesIngested(result.Added, result.Skipped)
	return result, nil
}
