// Package scoring evaluates the configured rule set against candidate
// (receipt, transaction) pairs and aggregates sub-scores into one weighted
// confidence score.
package scoring

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/fintally/tally/internal/tracing"
	"github.com/fintally/tally/pkg/learning"
	"github.com/fintally/tally/pkg/models"
)

// Aggregator combines enabled rules' sub-scores into a single 0-100
// confidence score, then applies the bounded learning adjustment.
type Aggregator struct {
	learning *learning.Store
	logger   *zap.Logger
}

// NewAggregator creates a new score aggregator. The learning store may be
// nil, in which case scores are returned unadjusted regardless of settings.
func NewAggregator(store *learning.Store, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		learning: store,
		logger:   logger,
	}
}

// Score computes the confidence for one candidate pair. Pure: identical
// inputs and learning-store state always yield identical output.
func (a *Aggregator) Score(ctx context.Context, receipt models.ReceiptRecord, tx models.BankTransactionRecord, settings models.ReconciliationSettings) models.ScoreBreakdown {
	breakdown, _ := a.ScorePair(ctx, receipt, tx, settings)
	return breakdown
}

// ScorePair is Score plus the pair's learning signature, which the batch
// manager stores on each Match so feedback can find the right entry later.
func (a *Aggregator) ScorePair(ctx context.Context, receipt models.ReceiptRecord, tx models.BankTransactionRecord, settings models.ReconciliationSettings) (models.ScoreBreakdown, string) {
	_, span := tracing.StartSpan(ctx, "scoring.Aggregator.ScorePair")
	defer span.End()

	p := newCandidatePair(receipt, tx)

	var weightedSum, totalWeight float64
	reasons := make([]string, 0, len(settings.Rules))

	for _, rule := range settings.Rules {
		if !rule.Enabled {
			// Disabled rules are absent from the mean, not zero contributors
			continue
		}
		subScore, text, ok := evaluateRule(rule, p)
		if !ok {
			a.logger.Debug("rule type has no evaluator, skipping",
				zap.String("rule_id", rule.ID),
				zap.String("rule_type", string(rule.Type)),
			)
			continue
		}
		weightedSum += subScore * rule.Weight
		totalWeight += rule.Weight
		reasons = append(reasons, formatReason(rule.ID, text, subScore))
	}

	var score float64
	if totalWeight > 0 {
		score = weightedSum / totalWeight
	}

	signature := learning.Signature(p.receiptAmount, p.txAmount, p.receiptName, p.txName)

	// With no enabled rules there is nothing to adjust; the score stays 0
	if settings.LearningEnabled && a.learning != nil && totalWeight > 0 {
		if offset := a.learning.Offset(signature); offset != 0 {
			score = clampScore(score + float64(offset))
			reasons = append(reasons, fmt.Sprintf("learning: feedback adjustment %+d", offset))
		}
	}

	return models.ScoreBreakdown{Score: score, Reasons: reasons}, signature
}

// formatReason renders "rule-id: explanation (score N)". The leading label
// up to the first colon is what the batch stats parse; the one-decimal score
// suffix lets them tell zero contributions apart.
func formatReason(ruleID, text string, score float64) string {
	return fmt.Sprintf("%s: %s (score %s)", ruleID, text, strconv.FormatFloat(score, 'f', 1, 64))
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
