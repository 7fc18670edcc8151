package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"example.com/challengesync/internal/domain"
	"example.com/challengesync/internal/events"
)

// SyncHandler feeds consumed sample batches into the reconciliation
// pipeline.
type SyncHandler struct {
	service *domain.SyncService
	logger  *log.Logger
}

// NewSyncHandler constructs a handler around the sync service.
func NewSyncHandler(service *domain.SyncService, logger *log.Logger) *SyncHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[sync-handler] ", log.LstdFlags)
	}
	return &SyncHandler{service: service, logger: logger}
}

// Handle decodes a health.samples_received event and runs the sync. A
// downstream reconciliation failure is logged but the message still
// commits; returning an error here would replay ingestion and churn the
// dedup path for nothing.
func (h *SyncHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != "health.samples_received" {
		h.logger.Printf("ignoring event_type=%s (topic=%s)", msg.EventType, msg.Topic)
		return nil
	}

	var batch events.SampleBatchReceived
	if err := json.Unmarshal(msg.Payload, &batch); err != nil {
		return fmt.Errorf("decode sample batch: %w", err)
	}
	if batch.UserID == "" {
		return fmt.Errorf("sample batch missing user_id")
	}

	candidates := make([]domain.SampleCandidate, 0, len(batch.Samples))
	for _, record := range batch.Samples {
		candidates = append(candidates, record.Candidate())
	}

	result, err := h.service.Sync(ctx, batch.UserID, candidates)
	if err != nil {
		return err
	}
	if result.ReconcileErr != nil {
		h.logger.Printf("reconciliation incomplete (user=%s): %v", batch.UserID, result.ReconcileErr)
	}
	h.logger.Printf("batch synced (user=%s, added=%d, skipped=%d)", batch.UserID, result.RecordsAdded, result.RecordsSkipped)
	return nil
}
