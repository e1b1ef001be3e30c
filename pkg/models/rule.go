package models

// RuleType identifies which record fields a reconciliation rule compares
type RuleType string

const (
	RuleTypeAmount   RuleType = "amount"
	RuleTypeDate     RuleType = "date"
	RuleTypeName     RuleType = "name"
	RuleTypeDocument RuleType = "document"
	RuleTypeCustom   RuleType = "custom"
)

// RuleStrategy identifies how the comparison is performed
type RuleStrategy string

const (
	RuleStrategyExact      RuleStrategy = "exact"      // Exact match after normalization
	RuleStrategyTolerant   RuleStrategy = "tolerant"   // Linear decay within a tolerance
	RuleStrategySimilarity RuleStrategy = "similarity" // Token-overlap similarity (name rules)
)

// ReconciliationRule is one independently enabled, weighted comparison rule.
// Weights are relative (0-100) and are not required to sum to 100; disabled
// rules are skipped entirely and contribute nothing to the weighted mean.
// Tolerance is a percentage for amount rules and hours for date rules; a
// tolerance of 0 means exact-or-nothing.
type ReconciliationRule struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Enabled   bool         `json:"enabled"`
	Weight    float64      `json:"weight"`
	Type      RuleType     `json:"type"`
	Strategy  RuleStrategy `json:"strategy"`
	Tolerance float64      `json:"tolerance,omitempty"`
	// Normalizers optionally replaces the built-in canonicalization of the
	// compared fields on name and document rules with a chain of registered
	// normalizer names, applied left to right to the raw extracted values.
	// Empty means the defaults (nname / ndocument).
	Normalizers []string `json:"normalizers,omitempty"`
}

// DefaultRules returns the built-in rule set. Document matching ships
// disabled: statement lines rarely carry a payer tax-ID, and an enabled
// document rule scores 0 for every documentless pair, dragging the mean.
func DefaultRules() []ReconciliationRule {
	return []ReconciliationRule{
		{ID: "amount-exact", Name: "Amount (exact)", Enabled: true, Weight: 50, Type: RuleTypeAmount, Strategy: RuleStrategyExact},
		{ID: "amount-tolerant", Name: "Amount (tolerant)", Enabled: true, Weight: 15, Type: RuleTypeAmount, Strategy: RuleStrategyTolerant, Tolerance: 2},
		{ID: "date-exact", Name: "Date (exact)", Enabled: false, Weight: 10, Type: RuleTypeDate, Strategy: RuleStrategyExact},
		{ID: "date-tolerant", Name: "Date (tolerant)", Enabled: true, Weight: 20, Type: RuleTypeDate, Strategy: RuleStrategyTolerant, Tolerance: 72},
		{ID: "name-exact", Name: "Name (exact)", Enabled: false, Weight: 10, Type: RuleTypeName, Strategy: RuleStrategyExact},
		{ID: "name-similarity", Name: "Name (similarity)", Enabled: true, Weight: 15, Type: RuleTypeName, Strategy: RuleStrategySimilarity},
		{ID: "document-exact", Name: "Document (exact)", Enabled: false, Weight: 10, Type: RuleTypeDocument, Strategy: RuleStrategyExact},
	}
}
