package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	t.Parallel()

	got, err := ParseDate("2026-03-09")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	want := Date{Year: 2026, Month: time.March, Day: 9}
	if got != want {
		t.Fatalf("date = %v, want %v", got, want)
	}
	if got.String() != "2026-03-09" {
		t.Fatalf("string = %q", got.String())
	}
}

func TestParseDateRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "yesterday", "2026-13-01", "2026/01/01", "01-02-2026"} {
		if _, err := ParseDate(in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ParseDate(%q) error = %v, want %v", in, err, ErrInvalidInput)
		}
	}
}

func TestDateArithmetic(t *testing.T) {
	t.Parallel()

	d := Date{Year: 2026, Month: time.February, Day: 27}
	if got := d.AddDays(3); got != (Date{Year: 2026, Month: time.March, Day: 2}) {
		t.Fatalf("add days = %v", got)
	}
	if got := d.AddDays(3).DaysSince(d); got != 3 {
		t.Fatalf("days since = %d, want 3", got)
	}
	if got := d.DaysSince(d.AddDays(10)); got != -10 {
		t.Fatalf("days since = %d, want -10", got)
	}
	if !d.Before(d.AddDays(1)) || d.After(d.AddDays(1)) || d.Compare(d) != 0 {
		t.Fatal("unexpected ordering")
	}
}

func TestDateJSON(t *testing.T) {
	t.Parallel()

	type doc struct {
		When Date `json:"when"`
	}
	raw, err := json.Marshal(doc{When: Date{Year: 2024, Month: time.January, Day: 1}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"when":"2024-01-01"}` {
		t.Fatalf("json = %s", raw)
	}
	var back doc
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.When.String() != "2024-01-01" {
		t.Fatalf("round trip = %v", back.When)
	}
	if err := json.Unmarshal([]byte(`{"when":"soon"}`), &back); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unmarshal malformed error = %v", err)
	}
}
