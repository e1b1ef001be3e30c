package models

import (
	"errors"
	"time"
)

// BatchJobStatus is the lifecycle state of an asynchronous reconciliation job
type BatchJobStatus string

const (
	BatchJobStatusPending    BatchJobStatus = "pending"
	BatchJobStatusProcessing BatchJobStatus = "processing"
	BatchJobStatusCompleted  BatchJobStatus = "completed"
	BatchJobStatusFailed     BatchJobStatus = "failed"
)

// Job-stage labels reported through JobProgress
const (
	StageReceipts       = "processing receipts"
	StageTransactions   = "processing transactions"
	StageReconciliation = "running reconciliation"
)

// Sentinel errors for registry lookups
var (
	ErrJobNotFound   = errors.New("batch job not found")
	ErrMatchNotFound = errors.New("match not found")
)

// JobProgress tracks monotonically non-decreasing progress against a
// precomputed total (receipts + transactions + receipts, one per pass).
type JobProgress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Stage   string `json:"stage,omitempty"`
}

// BatchJob is one fire-and-forget execution of the matcher over a fixed
// record set. Jobs never transition backward; once terminal they are
// immutable except that learning feedback may downgrade an individual
// match's status from auto_matched to manual_review.
type BatchJob struct {
	ID           string                  `json:"id"`
	UserID       string                  `json:"user_id"`
	Status       BatchJobStatus          `json:"status"`
	CreatedAt    time.Time               `json:"created_at"`
	CompletedAt  *time.Time              `json:"completed_at,omitempty"`
	Receipts     []ReceiptRecord         `json:"receipts,omitempty"`
	Transactions []BankTransactionRecord `json:"transactions,omitempty"`
	Progress     JobProgress             `json:"progress"`
	Result       *ReconciliationSummary  `json:"result,omitempty"`
	Error        string                  `json:"error,omitempty"`
	Settings     ReconciliationSettings  `json:"settings"`
}

// RuleUsage is one entry in the ranked rule-contribution list
type RuleUsage struct {
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}

// BatchStats aggregates a user's completed jobs
type BatchStats struct {
	TotalJobs          int         `json:"total_jobs"`
	CompletedJobs      int         `json:"completed_jobs"`
	AvgDurationSeconds float64     `json:"avg_duration_seconds"`
	TotalReceipts      int         `json:"total_receipts"`
	TotalTransactions  int         `json:"total_transactions"`
	TotalMatches       int         `json:"total_matches"`
	AvgMatchRate       float64     `json:"avg_match_rate"`
	TopRules           []RuleUsage `json:"top_rules"`
}

// SubmitJobRequest is a batch submission, whether it arrives over HTTP or
// from the extraction pipeline's Kafka topic.
type SubmitJobRequest struct {
	UserID       string                  `json:"user_id" validate:"required"`
	Receipts     []ReceiptRecord         `json:"receipts" validate:"required,min=1"`
	Transactions []BankTransactionRecord `json:"transactions"`
	Settings     *ReconciliationSettings `json:"settings,omitempty"`
}
