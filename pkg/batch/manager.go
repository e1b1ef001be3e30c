// Package batch runs reconciliation as asynchronous, progress-tracked jobs.
// Jobs are registered in an in-memory registry, consumed by a fixed worker
// pool, and run to a terminal state without cancellation or retry: a failed
// job must be resubmitted as a new job by the caller.
package batch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fintally/tally/internal/tracing"
	"github.com/fintally/tally/pkg/events"
	"github.com/fintally/tally/pkg/learning"
	"github.com/fintally/tally/pkg/matching"
	"github.com/fintally/tally/pkg/models"
	"github.com/fintally/tally/pkg/normalizers"
)

// Reconciler is the matching engine as the manager sees it
type Reconciler interface {
	ReconcileWithProgress(ctx context.Context, receipts []models.ReceiptRecord, transactions []models.BankTransactionRecord, settings models.ReconciliationSettings, progress matching.ProgressFunc) *models.ReconciliationSummary
}

// Config contains configuration for the batch job manager
type Config struct {
	Workers         int           // Worker goroutines consuming the queue (default: 4)
	QueueSize       int           // Buffered submissions before Submit rejects (default: 64)
	JobMaxAge       time.Duration // Age at which non-processing jobs are evicted (default: 24h)
	CleanupInterval time.Duration // Period of the eviction sweep; 0 disables it
}

// DefaultConfig returns default manager configuration
func DefaultConfig() Config {
	return Config{
		Workers:         4,
		QueueSize:       64,
		JobMaxAge:       24 * time.Hour,
		CleanupInterval: time.Hour,
	}
}

// Manager owns the job registry, the worker pool and the engine-wide
// reconciliation settings. Jobs snapshot settings at submission, so a
// settings update never tears a run already in flight.
type Manager struct {
	logger   *zap.Logger
	engine   Reconciler
	learning *learning.Store
	emitter  *events.Emitter // nil when event emission is disabled
	cfg      Config

	mu       sync.RWMutex
	jobs     map[string]*models.BatchJob
	settings models.ReconciliationSettings

	queue  chan string
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewManager creates a new batch job manager
func NewManager(engine Reconciler, store *learning.Store, emitter *events.Emitter, cfg Config, logger *zap.Logger) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.JobMaxAge <= 0 {
		cfg.JobMaxAge = DefaultConfig().JobMaxAge
	}

	return &Manager{
		logger:   logger,
		engine:   engine,
		learning: store,
		emitter:  emitter,
		cfg:      cfg,
		jobs:     make(map[string]*models.BatchJob),
		settings: models.DefaultSettings(),
		queue:    make(chan string, cfg.QueueSize),
	}
}

// Start launches the worker pool and the periodic cleanup sweep
func (m *Manager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	for i := 0; i < m.cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker(ctx)
	}

	if m.cfg.CleanupInterval > 0 {
		m.wg.Add(1)
		go m.sweep(ctx)
	}

	m.logger.Info("batch manager started",
		zap.Int("workers", m.cfg.Workers),
		zap.Duration("job_max_age", m.cfg.JobMaxAge),
	)
}

// Stop stops the workers. Jobs already running finish their current run;
// queued jobs stay pending until the next Start.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// Submit registers a job and queues it for asynchronous processing. The
// returned job id is immediately resolvable via Job.
func (m *Manager) Submit(ctx context.Context, req models.SubmitJobRequest) (string, error) {
	_, span := tracing.StartSpan(ctx, "batch.Manager.Submit")
	defer span.End()

	settings := m.Settings()
	if req.Settings != nil {
		settings = req.Settings.Clone()
	}

	job := &models.BatchJob{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		Status:       models.BatchJobStatusPending,
		CreatedAt:    time.Now().UTC(),
		Receipts:     req.Receipts,
		Transactions: req.Transactions,
		Progress: models.JobProgress{
			// One pass over receipts, one over transactions, one receipt
			// each during reconciliation
			Total: 2*len(req.Receipts) + len(req.Transactions),
		},
		Settings: settings,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	select {
	case m.queue <- job.ID:
	default:
		m.mu.Lock()
		delete(m.jobs, job.ID)
		m.mu.Unlock()
		return "", fmt.Errorf("job queue full (%d pending)", m.cfg.QueueSize)
	}

	m.logger.Info("batch job submitted",
		zap.String("job_id", job.ID),
		zap.String("user_id", req.UserID),
		zap.Int("receipts", len(req.Receipts)),
		zap.Int("transactions", len(req.Transactions)),
	)

	return job.ID, nil
}

// Job returns a snapshot of a job's current state
func (m *Manager) Job(jobID string) (models.BatchJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return models.BatchJob{}, models.ErrJobNotFound
	}
	return snapshotJob(job), nil
}

// UserJobs returns snapshots of a user's jobs, newest first
func (m *Manager) UserJobs(userID string) []models.BatchJob {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.BatchJob, 0)
	for _, job := range m.jobs {
		if job.UserID == userID {
			out = append(out, snapshotJob(job))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ConfirmMatch records a human verdict against a match: the learning store
// is adjusted through the pair's signature, and an incorrect verdict
// downgrades an auto_matched match to manual_review in place. No other
// status transition is triggered by feedback.
func (m *Manager) ConfirmMatch(ctx context.Context, jobID, matchID string, correct bool) error {
	ctx, span := tracing.StartSpan(ctx, "batch.Manager.ConfirmMatch")
	defer span.End()

	m.mu.Lock()
	job, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return models.ErrJobNotFound
	}

	var match *models.Match
	if job.Result != nil {
		for i := range job.Result.Matches {
			if job.Result.Matches[i].ID == matchID {
				match = &job.Result.Matches[i]
				break
			}
		}
	}
	if match == nil {
		m.mu.Unlock()
		return models.ErrMatchNotFound
	}

	offset := m.learning.Confirm(match.Signature, correct)
	if !correct && match.Status == models.MatchStatusAutoMatched {
		match.Status = models.MatchStatusManualReview
	}
	confirmed := *match
	userID := job.UserID
	m.mu.Unlock()

	m.logger.Info("match feedback recorded",
		zap.String("job_id", jobID),
		zap.String("match_id", matchID),
		zap.Bool("correct", correct),
		zap.Int("learning_offset", offset),
	)

	if m.emitter != nil {
		// Best effort; feedback already took effect
		_ = m.emitter.EmitMatchConfirmed(ctx, userID, jobID, confirmed, correct)
	}

	return nil
}

// Settings returns a copy of the engine-wide settings
func (m *Manager) Settings() models.ReconciliationSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.Clone()
}

// UpdateSettings applies a partial settings update. Running jobs keep the
// snapshot they were submitted with.
func (m *Manager) UpdateSettings(req models.UpdateSettingsRequest) models.ReconciliationSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = req.Apply(m.settings)
	return m.settings.Clone()
}

// CleanupOldJobs evicts jobs older than maxAge whose status is not
// processing, and returns the number evicted. Advisory housekeeping; the
// sweep goroutine calls this with the configured max age.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, job := range m.jobs {
		if job.Status == models.BatchJobStatusProcessing {
			continue
		}
		if job.CreatedAt.Before(cutoff) {
			delete(m.jobs, id)
			evicted++
		}
	}

	if evicted > 0 {
		m.logger.Info("evicted old batch jobs", zap.Int("count", evicted))
	}
	return evicted
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-m.queue:
			m.runJob(ctx, jobID)
		}
	}
}

func (m *Manager) sweep(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupOldJobs(m.cfg.JobMaxAge)
		}
	}
}

// runJob executes a single job to a terminal state. Any panic during the
// run is captured as the job's error message and the job fails; there is no
// partial result and no retry.
func (m *Manager) runJob(ctx context.Context, jobID string) {
	ctx, span := tracing.StartSpan(ctx, "batch.Manager.runJob")
	defer span.End()

	m.mu.Lock()
	job, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		// Evicted while queued
		m.logger.Warn("queued job no longer in registry", zap.String("job_id", jobID))
		return
	}
	job.Status = models.BatchJobStatusProcessing
	job.Progress.Stage = models.StageReceipts
	receipts := job.Receipts
	transactions := job.Transactions
	settings := job.Settings
	m.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			m.failJob(ctx, jobID, fmt.Sprintf("reconciliation panicked: %v", r))
		}
	}()

	log := m.logger.With(zap.String("job_id", jobID))
	log.Info("batch job started")

	// Pass 1: receipts. Amounts are parsed here so a statement full of
	// garbage shows up in the logs before scoring starts.
	unparsable := 0
	for _, r := range receipts {
		if normalizers.Amount(r.RawAmount).IsZero() {
			unparsable++
		}
		m.advance(jobID, models.StageReceipts)
	}
	if unparsable > 0 {
		log.Warn("receipts with unparsable amounts", zap.Int("count", unparsable))
	}

	// Pass 2: transactions
	for range transactions {
		m.advance(jobID, models.StageTransactions)
	}

	// Pass 3: reconciliation
	base := len(receipts) + len(transactions)
	summary := m.engine.ReconcileWithProgress(ctx, receipts, transactions, settings, func(done int) {
		m.setProgress(jobID, base+done, models.StageReconciliation)
	})

	m.completeJob(ctx, jobID, summary)
	log.Info("batch job completed",
		zap.Int("matches", len(summary.Matches)),
		zap.Int("unmatched", summary.Unmatched),
	)
}

func (m *Manager) advance(jobID, stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[jobID]; ok {
		job.Progress.Current++
		job.Progress.Stage = stage
	}
}

func (m *Manager) setProgress(jobID string, current int, stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[jobID]; ok {
		// Progress never moves backward
		if current > job.Progress.Current {
			job.Progress.Current = current
		}
		job.Progress.Stage = stage
	}
}

func (m *Manager) completeJob(ctx context.Context, jobID string, summary *models.ReconciliationSummary) {
	now := time.Now().UTC()

	m.mu.Lock()
	job, ok := m.jobs[jobID]
	if ok {
		job.Status = models.BatchJobStatusCompleted
		job.CompletedAt = &now
		job.Result = summary
		job.Progress.Current = job.Progress.Total
	}
	var snapshot models.BatchJob
	if ok {
		snapshot = snapshotJob(job)
	}
	m.mu.Unlock()

	if ok && m.emitter != nil {
		_ = m.emitter.EmitJobCompleted(ctx, &snapshot)
		_ = m.emitter.EmitJobMatches(ctx, &snapshot)
	}
}

func (m *Manager) failJob(ctx context.Context, jobID, message string) {
	now := time.Now().UTC()

	m.mu.Lock()
	job, ok := m.jobs[jobID]
	if ok {
		job.Status = models.BatchJobStatusFailed
		job.CompletedAt = &now
		job.Error = message
		job.Result = nil
	}
	var snapshot models.BatchJob
	if ok {
		snapshot = snapshotJob(job)
	}
	m.mu.Unlock()

	m.logger.Error("batch job failed", zap.String("job_id", jobID), zap.String("error", message))

	if ok && m.emitter != nil {
		_ = m.emitter.EmitJobFailed(ctx, &snapshot)
	}
}

// snapshotJob copies a job so callers never alias registry state. The match
// slice is copied because ConfirmMatch mutates match statuses in place; the
// input record slices are read-only and shared.
func snapshotJob(job *models.BatchJob) models.BatchJob {
	out := *job
	if job.Result != nil {
		res := *job.Result
		res.Matches = make([]models.Match, len(job.Result.Matches))
		copy(res.Matches, job.Result.Matches)
		out.Result = &res
	}
	return out
}
