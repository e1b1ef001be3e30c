package batch

import (
	"sort"
	"strings"
	"time"

	"github.com/fintally/tally/pkg/models"
)

// Stats aggregates a user's job history. Duration and match-rate averages
// only consider completed jobs; pending, processing and failed jobs count
// toward TotalJobs and nothing else.
func (m *Manager) Stats(userID string) models.BatchStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats models.BatchStats
	var totalDuration time.Duration
	ruleCounts := make(map[string]int)

	for _, job := range m.jobs {
		if job.UserID != userID {
			continue
		}
		stats.TotalJobs++
		if job.Status != models.BatchJobStatusCompleted || job.Result == nil || job.CompletedAt == nil {
			continue
		}

		stats.CompletedJobs++
		totalDuration += job.CompletedAt.Sub(job.CreatedAt)
		stats.TotalReceipts += job.Result.TotalReceipts
		stats.TotalTransactions += job.Result.TotalTransactions
		stats.TotalMatches += len(job.Result.Matches)

		for _, match := range job.Result.Matches {
			for _, reason := range match.Reasons {
				if rule, ok := contributingRule(reason); ok {
					ruleCounts[rule]++
				}
			}
		}
	}

	if stats.CompletedJobs > 0 {
		stats.AvgDurationSeconds = totalDuration.Seconds() / float64(stats.CompletedJobs)
	}
	if stats.TotalReceipts > 0 {
		stats.AvgMatchRate = float64(stats.TotalMatches) / float64(stats.TotalReceipts)
	}
	stats.TopRules = topRules(ruleCounts, 5)

	return stats
}

// contributingRule extracts the rule id from a match reason ("rule-id: text
// (score N.N)") and reports whether the rule actually contributed. Learning
// adjustments are not rules, and a zero sub-score is not a contribution.
func contributingRule(reason string) (string, bool) {
	rule, _, found := strings.Cut(reason, ":")
	if !found {
		return "", false
	}
	rule = strings.TrimSpace(rule)
	if rule == "" || rule == "learning" {
		return "", false
	}
	if strings.HasSuffix(reason, "(score 0.0)") {
		return "", false
	}
	return rule, true
}

func topRules(counts map[string]int, limit int) []models.RuleUsage {
	usage := make([]models.RuleUsage, 0, len(counts))
	for rule, count := range counts {
		usage = append(usage, models.RuleUsage{Rule: rule, Count: count})
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Count != usage[j].Count {
			return usage[i].Count > usage[j].Count
		}
		return usage[i].Rule < usage[j].Rule
	})
	if len(usage) > limit {
		usage = usage[:limit]
	}
	return usage
}
