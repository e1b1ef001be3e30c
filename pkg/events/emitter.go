// Package events emits reconciliation lifecycle events for downstream
// consumers (persistence, reporting, notification). The engine core never
// blocks on emission: events go out after a job reaches a terminal state,
// from the job's own goroutine, and an emission failure is logged rather
// than failing the job.
package events

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/fintally/tally/internal/tracing"
	"github.com/fintally/tally/pkg/kafka"
	"github.com/fintally/tally/pkg/models"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes reconciliation events
type Emitter struct {
	producer *kafka.Producer
	logger   *zap.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger *zap.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitJobCompleted emits a job.completed event carrying the result summary
// counts (not the full match list; downstream fetches that via the API).
func (e *Emitter) EmitJobCompleted(ctx context.Context, job *models.BatchJob) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitJobCompleted")
	defer span.End()

	data := map[string]any{
		"schema_version":     SchemaVersion,
		"total_receipts":     job.Result.TotalReceipts,
		"total_transactions": job.Result.TotalTransactions,
		"auto_matched":       job.Result.AutoMatched,
		"manual_review":      job.Result.ManualReview,
		"unmatched":          job.Result.Unmatched,
	}
	dataJSON, _ := json.Marshal(data)

	event := &kafka.ReconciliationEvent{
		EventType: "reconciliation.job.completed",
		UserID:    job.UserID,
		JobID:     job.ID,
		Data:      dataJSON,
	}

	if err := e.producer.PublishReconciliationEvent(ctx, event); err != nil {
		e.logger.Error("failed to emit job.completed event", zap.Error(err), zap.String("job_id", job.ID))
		return err
	}

	return nil
}

// EmitJobMatches emits one match.created event per match of a completed job,
// published as a single batched write
func (e *Emitter) EmitJobMatches(ctx context.Context, job *models.BatchJob) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitJobMatches")
	defer span.End()

	if job.Result == nil {
		return nil
	}

	batch := matchEvents(job.UserID, job.ID, job.Result.Matches)
	if len(batch) == 0 {
		return nil
	}

	if err := e.producer.PublishReconciliationEvents(ctx, batch); err != nil {
		e.logger.Error("failed to emit match.created events", zap.Error(err), zap.String("job_id", job.ID))
		return err
	}

	return nil
}

// matchEvents builds the per-match event batch for one job
func matchEvents(userID, jobID string, matches []models.Match) []*kafka.ReconciliationEvent {
	batch := make([]*kafka.ReconciliationEvent, 0, len(matches))
	for _, match := range matches {
		data, _ := json.Marshal(map[string]any{
			"schema_version": SchemaVersion,
			"match_id":       match.ID,
			"receipt_id":     match.ReceiptID,
			"transaction_id": match.TransactionID,
			"score":          match.Score,
			"status":         match.Status,
			"reasons":        match.Reasons,
		})
		batch = append(batch, &kafka.ReconciliationEvent{
			EventType: "reconciliation.match.created",
			UserID:    userID,
			JobID:     jobID,
			Data:      data,
		})
	}
	return batch
}

// EmitJobFailed emits a job.failed event with the captured error message
func (e *Emitter) EmitJobFailed(ctx context.Context, job *models.BatchJob) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitJobFailed")
	defer span.End()

	data := map[string]any{
		"schema_version": SchemaVersion,
		"error":          job.Error,
	}
	dataJSON, _ := json.Marshal(data)

	event := &kafka.ReconciliationEvent{
		EventType: "reconciliation.job.failed",
		UserID:    job.UserID,
		JobID:     job.ID,
		Data:      dataJSON,
	}

	if err := e.producer.PublishReconciliationEvent(ctx, event); err != nil {
		e.logger.Error("failed to emit job.failed event", zap.Error(err), zap.String("job_id", job.ID))
		return err
	}

	return nil
}

// EmitMatchConfirmed emits a match.confirmed event when a human verdict is
// recorded against a match
func (e *Emitter) EmitMatchConfirmed(ctx context.Context, userID, jobID string, match models.Match, correct bool) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMatchConfirmed")
	defer span.End()

	data := map[string]any{
		"schema_version": SchemaVersion,
		"match_id":       match.ID,
		"receipt_id":     match.ReceiptID,
		"transaction_id": match.TransactionID,
		"score":          match.Score,
		"status":         match.Status,
		"correct":        correct,
	}
	dataJSON, _ := json.Marshal(data)

	event := &kafka.ReconciliationEvent{
		EventType: "reconciliation.match.confirmed",
		UserID:    userID,
		JobID:     jobID,
		Data:      dataJSON,
	}

	if err := e.producer.PublishReconciliationEvent(ctx, event); err != nil {
		e.logger.Error("failed to emit match.confirmed event", zap.Error(err), zap.String("match_id", match.ID))
		return err
	}

	return nil
}
