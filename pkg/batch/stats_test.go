package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintally/tally/pkg/models"
)

func TestContributingRule(t *testing.T) {
	tests := []struct {
		reason   string
		wantRule string
		wantOK   bool
	}{
		{"amount-exact: exact amount match (score 100.0)", "amount-exact", true},
		{"date-tolerant: dates 3.0 hours apart (score 97.9)", "date-tolerant", true},
		{"name-similarity: no name tokens in common (score 0.0)", "", false},
		{"learning: feedback adjustment +5", "", false},
		{"free text without a label", "", false},
		{": empty label (score 50.0)", "", false},
	}

	for _, tt := range tests {
		rule, ok := contributingRule(tt.reason)
		assert.Equal(t, tt.wantOK, ok, "reason %q", tt.reason)
		assert.Equal(t, tt.wantRule, rule, "reason %q", tt.reason)
	}
}

func TestManager_Stats(t *testing.T) {
	m, _ := newTestManager(t, &stubReconciler{})

	started := time.Now().UTC().Add(-time.Minute)
	done10 := started.Add(10 * time.Second)
	done20 := started.Add(20 * time.Second)

	m.jobs["j1"] = &models.BatchJob{
		ID: "j1", UserID: "user-1",
		Status:      models.BatchJobStatusCompleted,
		CreatedAt:   started,
		CompletedAt: &done10,
		Result: &models.ReconciliationSummary{
			TotalReceipts:     4,
			TotalTransactions: 4,
			Matches: []models.Match{
				{ID: "m1", Reasons: []string{
					"amount-exact: exact amount match (score 100.0)",
					"name-similarity: name token overlap 50% (score 50.0)",
					"learning: feedback adjustment +5",
				}},
				{ID: "m2", Reasons: []string{
					"amount-exact: exact amount match (score 100.0)",
					"name-similarity: no name tokens in common (score 0.0)",
				}},
			},
		},
	}
	m.jobs["j2"] = &models.BatchJob{
		ID: "j2", UserID: "user-1",
		Status:      models.BatchJobStatusCompleted,
		CreatedAt:   started,
		CompletedAt: &done20,
		Result: &models.ReconciliationSummary{
			TotalReceipts:     2,
			TotalTransactions: 2,
			Matches: []models.Match{
				{ID: "m3", Reasons: []string{"amount-exact: exact amount match (score 100.0)"}},
			},
		},
	}
	m.jobs["j3"] = &models.BatchJob{
		ID: "j3", UserID: "user-1",
		Status:    models.BatchJobStatusFailed,
		CreatedAt: started,
	}
	m.jobs["j4"] = &models.BatchJob{
		ID: "j4", UserID: "someone-else",
		Status:    models.BatchJobStatusCompleted,
		CreatedAt: started,
	}

	stats := m.Stats("user-1")

	assert.Equal(t, 3, stats.TotalJobs)
	assert.Equal(t, 2, stats.CompletedJobs)
	assert.InDelta(t, 15.0, stats.AvgDurationSeconds, 0.001)
	assert.Equal(t, 6, stats.TotalReceipts)
	assert.Equal(t, 6, stats.TotalTransactions)
	assert.Equal(t, 3, stats.TotalMatches)
	assert.InDelta(t, 0.5, stats.AvgMatchRate, 0.001)

	require.Len(t, stats.TopRules, 2)
	assert.Equal(t, models.RuleUsage{Rule: "amount-exact", Count: 3}, stats.TopRules[0])
	assert.Equal(t, models.RuleUsage{Rule: "name-similarity", Count: 1}, stats.TopRules[1])
}

func TestManager_Stats_NoJobs(t *testing.T) {
	m, _ := newTestManager(t, &stubReconciler{})

	stats := m.Stats("nobody")
	assert.Equal(t, 0, stats.TotalJobs)
	assert.Equal(t, 0.0, stats.AvgDurationSeconds)
	assert.Equal(t, 0.0, stats.AvgMatchRate)
	assert.Empty(t, stats.TopRules)
}
