package aggregate

import (
	"testing"
	"time"

	"fairshare/internal/model"
)

func day(d int) model.Date {
	return model.Date{Year: 2026, Month: time.October, Day: d}
}

func TestSortUpdatesOrdersByDateThenInsertion(t *testing.T) {
	t.Parallel()

	in := []model.Update{
		{ID: 1, Date: day(5), Text: "a"},
		{ID: 2, Date: day(3), Text: "b"},
		{ID: 3, Date: day(5), Text: "c"},
		{ID: 4, Date: day(1), Text: "d"},
	}
	got := SortUpdates(in)
	want := []string{"d", "b", "a", "c"}
	for i, u := range got {
		if u.Text != want[i] {
			t.Fatalf("order[%d] = %q, want %q", i, u.Text, want[i])
		}
	}
	if in[0].Text != "a" {
		t.Fatal("SortUpdates mutated its input")
	}
	if got := SortUpdates(nil); got == nil || len(got) != 0 {
		t.Fatalf("SortUpdates(nil) = %#v", got)
	}
}

func TestBuildReport(t *testing.T) {
	t.Parallel()

	ann := int64(10)
	project := model.Project{ID: 1, Name: "Launch"}
	modules := []model.Module{
		{ID: 1, ProjectID: 1, Name: "Design", AssignedMemberID: &ann, AssigneeName: "Ann", Priority: model.PriorityMedium},
		{ID: 2, ProjectID: 1, Name: "Build", Priority: model.PriorityHigh, Completed: true},
		{ID: 3, ProjectID: 1, Name: "Ship", Priority: model.PriorityLow},
	}
	updates := GroupUpdates([]model.Update{
		{ID: 7, ModuleID: 1, Date: day(9), Text: "reviewed"},
		{ID: 5, ModuleID: 1, Date: day(2), Text: "started"},
		{ID: 6, ModuleID: 2, Date: day(4), Text: "done"},
	})

	r := BuildReport(project, modules, updates)
	if r.TotalModules != 3 || r.CompletedModules != 1 || r.Progress != 33 {
		t.Fatalf("totals = %d/%d %d%%", r.CompletedModules, r.TotalModules, r.Progress)
	}
	if len(r.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(r.Rows))
	}
	if r.Rows[0].Assignee != "Ann" {
		t.Fatalf("row 0 assignee = %q", r.Rows[0].Assignee)
	}
	if r.Rows[1].Assignee != UnassignedLabel {
		t.Fatalf("row 1 assignee = %q", r.Rows[1].Assignee)
	}
	if got := r.Rows[0].Updates; len(got) != 2 || got[0].Text != "started" || got[1].Text != "reviewed" {
		t.Fatalf("row 0 updates = %+v", got)
	}
	if got := r.Rows[2].Updates; got == nil || len(got) != 0 {
		t.Fatalf("row 2 updates = %#v, want empty", got)
	}
}

func TestBuildReportEmptyProject(t *testing.T) {
	t.Parallel()

	r := BuildReport(model.Project{ID: 9, Name: "Empty"}, nil, nil)
	if r.TotalModules != 0 || r.Progress != 0 || r.Rows == nil {
		t.Fatalf("empty report = %+v", r)
	}
}
