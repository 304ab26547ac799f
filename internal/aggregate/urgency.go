package aggregate

import (
	"fmt"
	"strings"

	"fairshare/internal/model"
)

type UrgencyClass string

const (
	UrgencyNone     UrgencyClass = "none"
	UrgencyOverdue  UrgencyClass = "overdue"
	UrgencyDueToday UrgencyClass = "due-today"
	UrgencyNormal   UrgencyClass = "normal"
)

type Urgency struct {
	Class UrgencyClass `json:"class"`
	Label string       `json:"label"`
	// DaysLeft is negative when overdue and zero for none and due-today.
	DaysLeft int `json:"days_left"`
}

// ComputeUrgency classifies a deadline relative to today.
func ComputeUrgency(deadline *model.Date, today model.Date) Urgency {
	if deadline == nil || deadline.IsZero() {
		return Urgency{Class: UrgencyNone, Label: "No deadline"}
	}
	days := deadline.DaysSince(today)
	switch {
	case days < 0:
		return Urgency{Class: UrgencyOverdue, Label: "Overdue", DaysLeft: days}
	case days == 0:
		return Urgency{Class: UrgencyDueToday, Label: "Due today"}
	}
	return Urgency{Class: UrgencyNormal, Label: fmt.Sprintf("%d days left", days), DaysLeft: days}
}

// UrgencyForText classifies a raw stored deadline. Empty or unparsable text is
// UrgencyNone.
func UrgencyForText(raw string, today model.Date) Urgency {
	if strings.TrimSpace(raw) == "" {
		return ComputeUrgency(nil, today)
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return ComputeUrgency(nil, today)
	}
	return ComputeUrgency(&d, today)
}
