package models

import "time"

// MatchStatus classifies a proposed receipt/transaction pairing
type MatchStatus string

const (
	MatchStatusAutoMatched  MatchStatus = "auto_matched"
	MatchStatusManualReview MatchStatus = "manual_review"
	MatchStatusNoMatch      MatchStatus = "no_match"
)

// Match pairs one receipt with one bank transaction. Within a single
// matching run a transaction appears in at most one Match, and so does a
// receipt. Reasons carry one entry per enabled rule in the form
// "rule-id: explanation (score N)"; the leading label is what the batch
// stats parse.
type Match struct {
	ID            string      `json:"id"`
	ReceiptID     string      `json:"receipt_id"`
	TransactionID string      `json:"transaction_id"`
	Score         float64     `json:"score"`
	Status        MatchStatus `json:"status"`
	MatchedAt     time.Time   `json:"matched_at"`
	Reasons       []string    `json:"reasons"`

	// Signature is the learning-store key for this pair. Internal.
	Signature string `json:"-"`
}

// ScoreBreakdown is the result of scoring a single candidate pair
type ScoreBreakdown struct {
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// ReconciliationSummary is the outcome of one matching run. Unmatched counts
// receipts whose best candidate fell below the manual-review floor; those
// receipts produce no Match at all.
type ReconciliationSummary struct {
	TotalReceipts     int     `json:"total_receipts"`
	TotalTransactions int     `json:"total_transactions"`
	AutoMatched       int     `json:"auto_matched"`
	ManualReview      int     `json:"manual_review"`
	Unmatched         int     `json:"unmatched"`
	Matches           []Match `json:"matches"`
}
