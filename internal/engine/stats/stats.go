// Package stats buckets the issues of a report by severity, category or file.
package stats

import "warnboard/internal/core/model"

// Aggregate counts the issues of report per grouping key. The returned map is fresh on
// every call; keys that do not occur are absent rather than zero.
func Aggregate(report model.Report, groupBy model.GroupBy) map[string]int {
	counts := make(map[string]int)
	for _, issue := range report {
		counts[groupBy.Key(issue)]++
	}
	return counts
}
