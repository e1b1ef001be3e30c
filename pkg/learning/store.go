// Package learning holds feedback-driven score adjustments. Offsets live
// only in process memory for the lifetime of the engine instance; entries
// never expire and are unbounded in count, only the per-entry offset is
// clamped.
package learning

import (
	"sync"

	"go.uber.org/zap"
)

const (
	// Step applied per feedback verdict
	adjustStep = 5
	// Offset bounds
	maxOffset = 20
	minOffset = -20
)

// Store maps pair signatures to bounded score offsets. All access goes
// through the mutex; updates are atomic per signature, last writer wins.
type Store struct {
	mu      sync.Mutex
	offsets map[string]int
	logger  *zap.Logger
}

// NewStore creates an empty learning store
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		offsets: make(map[string]int),
		logger:  logger,
	}
}

// Confirm records a human verdict for a pair signature: +5 for a correct
// match, -5 for an incorrect one, clamped to [-20, +20]. Returns the new
// offset.
func (s *Store) Confirm(signature string, correct bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	offset := s.offsets[signature]
	if correct {
		offset += adjustStep
	} else {
		offset -= adjustStep
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	if offset < minOffset {
		offset = minOffset
	}
	s.offsets[signature] = offset

	s.logger.Debug("learning offset updated",
		zap.String("signature", signature),
		zap.Bool("correct", correct),
		zap.Int("offset", offset),
	)
	return offset
}

// Offset returns the stored adjustment for a signature, 0 when unseen
func (s *Store) Offset(signature string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offsets[signature]
}

// Len reports how many signatures carry an adjustment. Entries are never
// evicted, so this is the number the process has accumulated since start.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.offsets)
}
