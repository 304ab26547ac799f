package aggregate

import (
	"testing"
	"time"

	"fairshare/internal/model"
)

func TestComputeUrgency(t *testing.T) {
	t.Parallel()

	today := model.Date{Year: 2026, Month: time.October, Day: 14}
	yesterday := today.AddDays(-1)
	tomorrow := today.AddDays(1)
	nextWeek := today.AddDays(7)

	tests := []struct {
		name      string
		deadline  *model.Date
		wantClass UrgencyClass
		wantLabel string
	}{
		{"missing", nil, UrgencyNone, "No deadline"},
		{"zero", &model.Date{}, UrgencyNone, "No deadline"},
		{"yesterday", &yesterday, UrgencyOverdue, "Overdue"},
		{"today", &today, UrgencyDueToday, "Due today"},
		{"tomorrow", &tomorrow, UrgencyNormal, "1 days left"},
		{"next week", &nextWeek, UrgencyNormal, "7 days left"},
	}
	for _, tt := range tests {
		got := ComputeUrgency(tt.deadline, today)
		if got.Class != tt.wantClass {
			t.Fatalf("%s: class = %q, want %q", tt.name, got.Class, tt.wantClass)
		}
		if got.Label != tt.wantLabel {
			t.Fatalf("%s: label = %q, want %q", tt.name, got.Label, tt.wantLabel)
		}
	}
}

func TestUrgencyForText(t *testing.T) {
	t.Parallel()

	today := model.Date{Year: 2026, Month: time.October, Day: 14}
	for _, raw := range []string{"", "   ", "not a date", "2026-02-30", "14/10/2026"} {
		if got := UrgencyForText(raw, today); got.Class != UrgencyNone {
			t.Fatalf("UrgencyForText(%q) = %q, want none", raw, got.Class)
		}
	}
	if got := UrgencyForText("2024-01-01", today); got.Class != UrgencyOverdue || got.DaysLeft >= 0 {
		t.Fatalf("legacy deadline urgency = %+v", got)
	}
}
