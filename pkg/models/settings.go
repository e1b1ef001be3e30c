package models

// ReconciliationSettings configures one matching run. The batch manager owns
// the engine-wide instance; each submitted job snapshots the settings (or an
// explicit override) so a mid-flight update never tears a running job.
type ReconciliationSettings struct {
	AutoMatchThreshold    float64              `json:"auto_match_threshold"`
	ManualReviewThreshold float64              `json:"manual_review_threshold"`
	Rules                 []ReconciliationRule `json:"rules"`
	LearningEnabled       bool                 `json:"learning_enabled"`
	// StrictMode skips candidate pairs whose amounts are not both parseable,
	// instead of letting them limp along on date/name signals alone.
	StrictMode bool `json:"strict_mode"`
}

// DefaultSettings returns the engine defaults: auto-match at 70,
// manual review floor at 15, learning on, strict mode off.
func DefaultSettings() ReconciliationSettings {
	return ReconciliationSettings{
		AutoMatchThreshold:    70,
		ManualReviewThreshold: 15,
		Rules:                 DefaultRules(),
		LearningEnabled:       true,
		StrictMode:            false,
	}
}

// UpdateSettingsRequest is a partial settings update; nil fields are left
// untouched. Replacing Rules replaces the whole rule set.
type UpdateSettingsRequest struct {
	AutoMatchThreshold    *float64             `json:"auto_match_threshold,omitempty" validate:"omitempty,gte=0,lte=100"`
	ManualReviewThreshold *float64             `json:"manual_review_threshold,omitempty" validate:"omitempty,gte=0,lte=100"`
	Rules                 []ReconciliationRule `json:"rules,omitempty" validate:"omitempty,dive"`
	LearningEnabled       *bool                `json:"learning_enabled,omitempty"`
	StrictMode            *bool                `json:"strict_mode,omitempty"`
}

// Apply merges the request into a settings value and returns the result
func (r UpdateSettingsRequest) Apply(s ReconciliationSettings) ReconciliationSettings {
	if r.AutoMatchThreshold != nil {
		s.AutoMatchThreshold = *r.AutoMatchThreshold
	}
	if r.ManualReviewThreshold != nil {
		s.ManualReviewThreshold = *r.ManualReviewThreshold
	}
	if r.Rules != nil {
		s.Rules = make([]ReconciliationRule, len(r.Rules))
		copy(s.Rules, r.Rules)
	}
	if r.LearningEnabled != nil {
		s.LearningEnabled = *r.LearningEnabled
	}
	if r.StrictMode != nil {
		s.StrictMode = *r.StrictMode
	}
	return s
}

// Clone returns a deep copy so job snapshots never alias the live rule slice
func (s ReconciliationSettings) Clone() ReconciliationSettings {
	out := s
	out.Rules = make([]ReconciliationRule, len(s.Rules))
	copy(out.Rules, s.Rules)
	return out
}
