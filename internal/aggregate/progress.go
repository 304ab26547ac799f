// Package aggregate derives progress, urgency and report rollups from store
// snapshots. Every function is pure; results are recomputed on each read.
package aggregate

import "fairshare/internal/model"

// ComputeProgress returns round(100 * completed / total) with halves rounded
// up, and 0 for an empty set.
func ComputeProgress(modules []model.Module) int {
	completed := 0
	for _, m := range modules {
		if m.Completed {
			completed++
		}
	}
	return Percent(completed, len(modules))
}

// Percent is the integer percentage of part in total, clamped to [0, 100].
func Percent(part, total int) int {
	if total <= 0 || part <= 0 {
		return 0
	}
	if part >= total {
		return 100
	}
	return (200*part + total) / (2 * total)
}
