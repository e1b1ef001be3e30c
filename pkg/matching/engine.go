// Package matching implements the greedy receipt-to-transaction matcher
package matching

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fintally/tally/internal/tracing"
	"github.com/fintally/tally/pkg/models"
	"github.com/fintally/tally/pkg/scoring"
)

// ProgressFunc is called with the number of receipts processed so far
// during a reconciliation run
type ProgressFunc func(processed int)

// Engine pairs receipts with bank transactions. For each receipt, in input
// order, it claims the best-scoring still-available transaction at or above
// the manual-review floor and removes it from the pool. Greedy and
// non-backtracking: a later receipt cannot steal back a transaction an
// earlier one claimed, even when it would have been the better fit.
type Engine struct {
	logger     *zap.Logger
	aggregator *scoring.Aggregator
}

// NewEngine creates a new matcher around a score aggregator
func NewEngine(aggregator *scoring.Aggregator, logger *zap.Logger) *Engine {
	return &Engine{
		logger:     logger,
		aggregator: aggregator,
	}
}

// ComputeScore scores a single candidate pair. No side effects.
func (e *Engine) ComputeScore(ctx context.Context, receipt models.ReceiptRecord, tx models.BankTransactionRecord, settings models.ReconciliationSettings) models.ScoreBreakdown {
	return e.aggregator.Score(ctx, receipt, tx, settings)
}

// Reconcile runs one matching pass over the given record sets. Deterministic
// for identical inputs, settings and learning-store state.
func (e *Engine) Reconcile(ctx context.Context, receipts []models.ReceiptRecord, transactions []models.BankTransactionRecord, settings models.ReconciliationSettings) *models.ReconciliationSummary {
	return e.ReconcileWithProgress(ctx, receipts, transactions, settings, nil)
}

// ReconcileWithProgress is Reconcile with a per-receipt progress callback,
// used by the batch job manager. progress may be nil.
func (e *Engine) ReconcileWithProgress(ctx context.Context, receipts []models.ReceiptRecord, transactions []models.BankTransactionRecord, settings models.ReconciliationSettings, progress ProgressFunc) *models.ReconciliationSummary {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.Reconcile")
	defer span.End()

	consumed := make(map[int]bool, len(transactions))
	matches := make([]models.Match, 0, len(receipts))
	var autoMatched, manualReview int

	for i, receipt := range receipts {
		bestIdx := -1
		var bestScore float64
		var bestBreakdown models.ScoreBreakdown
		var bestSignature string

		for j, tx := range transactions {
			if consumed[j] {
				continue
			}
			if settings.StrictMode && !scoring.AmountsComparable(receipt, tx) {
				continue
			}

			breakdown, signature := e.aggregator.ScorePair(ctx, receipt, tx, settings)
			// Strictly higher wins; ties keep the first candidate seen
			if bestIdx == -1 || breakdown.Score > bestScore {
				bestIdx = j
				bestScore = breakdown.Score
				bestBreakdown = breakdown
				bestSignature = signature
			}
		}

		if bestIdx >= 0 && bestScore >= settings.ManualReviewThreshold {
			status := models.MatchStatusManualReview
			if bestScore >= settings.AutoMatchThreshold {
				status = models.MatchStatusAutoMatched
				autoMatched++
			} else {
				manualReview++
			}

			matches = append(matches, models.Match{
				ID:            uuid.NewString(),
				ReceiptID:     receipt.ID,
				TransactionID: transactions[bestIdx].ID,
				Score:         bestScore,
				Status:        status,
				MatchedAt:     time.Now().UTC(),
				Reasons:       bestBreakdown.Reasons,
				Signature:     bestSignature,
			})
			consumed[bestIdx] = true
		}

		if progress != nil {
			progress(i + 1)
		}
	}

	summary := &models.ReconciliationSummary{
		TotalReceipts:     len(receipts),
		TotalTransactions: len(transactions),
		AutoMatched:       autoMatched,
		ManualReview:      manualReview,
		Unmatched:         len(receipts) - len(matches),
		Matches:           matches,
	}

	e.logger.Info("reconciliation run finished",
		zap.Int("receipts", summary.TotalReceipts),
		zap.Int("transactions", summary.TotalTransactions),
		zap.Int("auto_matched", summary.AutoMatched),
		zap.Int("manual_review", summary.ManualReview),
		zap.Int("unmatched", summary.Unmatched),
	)

	return summary
}
