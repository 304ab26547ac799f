package aggregate

import (
	"slices"

	"fairshare/internal/model"
)

// UnassignedLabel is shown in place of an assignee name.
const UnassignedLabel = "Unassigned"

type Report struct {
	Project          model.Project `json:"project"`
	Urgency          Urgency       `json:"urgency"`
	Rows             []ReportRow   `json:"modules"`
	TotalModules     int           `json:"total_modules"`
	CompletedModules int           `json:"completed_modules"`
	Progress         int           `json:"progress"`
}

type ReportRow struct {
	ModuleID  int64          `json:"module_id"`
	Name      string         `json:"name"`
	Assignee  string         `json:"assignee"`
	Priority  model.Priority `json:"priority"`
	Completed bool           `json:"completed"`
	Updates   []model.Update `json:"updates"`
}

// SortUpdates returns a copy of updates ordered by date ascending. Equal dates
// keep insertion order, which is id order.
func SortUpdates(updates []model.Update) []model.Update {
	out := slices.Clone(updates)
	slices.SortStableFunc(out, func(a, b model.Update) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	if out == nil {
		out = []model.Update{}
	}
	return out
}

// BuildReport assembles per-module rows with sorted histories and the project
// totals. Urgency is left for the caller, who owns the notion of today.
func BuildReport(project model.Project, modules []model.Module, updatesByModule map[int64][]model.Update) Report {
	r := Report{
		Project:      project,
		Rows:         make([]ReportRow, 0, len(modules)),
		TotalModules: len(modules),
	}
	for _, m := range modules {
		assignee := m.AssigneeName
		if m.AssignedMemberID == nil || assignee == "" {
			assignee = UnassignedLabel
		}
		if m.Completed {
			r.CompletedModules++
		}
		r.Rows = append(r.Rows, ReportRow{
			ModuleID:  m.ID,
			Name:      m.Name,
			Assignee:  assignee,
			Priority:  m.Priority,
			Completed: m.Completed,
			Updates:   SortUpdates(updatesByModule[m.ID]),
		})
	}
	r.Progress = Percent(r.CompletedModules, r.TotalModules)
	return r
}

// GroupUpdates indexes updates by module id, preserving their order.
func GroupUpdates(updates []model.Update) map[int64][]model.Update {
	out := make(map[int64][]model.Update)
	for _, u := range updates {
		out[u.ModuleID] = append(out[u.ModuleID], u)
	}
	return out
}
