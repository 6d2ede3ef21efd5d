package revenue_test

import (
	"testing"
	"time"

	"github.com/warp/contract-revenue/revenue"
)

func TestMonthsBetween_Inclusive(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"aug to dec", date(2025, time.August, 1), date(2025, time.December, 31), 5},
		{"same day", date(2025, time.March, 10), date(2025, time.March, 10), 1},
		{"mid month to mid month", date(2025, time.January, 15), date(2025, time.March, 15), 3},
		{"across year", date(2024, time.November, 30), date(2025, time.February, 1), 4},
		{"inverted clamps to one", date(2025, time.December, 1), date(2025, time.January, 1), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := revenue.MonthsBetween(tt.start, tt.end); got != tt.want {
				t.Errorf("MonthsBetween() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMonthCursor_LeapYearFebruary(t *testing.T) {
	// GIVEN: A cursor at Jan 31, 2024
	// WHEN: Stepping one calendar month
	// THEN: Feb 29, 2024 (leap year), not Mar 2

	cursor := revenue.NewMonthCursor(date(2024, time.January, 31))
	if !cursor.Date().Equal(date(2024, time.January, 31)) {
		t.Fatalf("expected start at Jan 31, got %v", cursor.Date())
	}

	got := cursor.Next()
	if !got.Equal(date(2024, time.February, 29)) {
		t.Errorf("expected 2024-02-29, got %v", got)
	}

	got = cursor.Next()
	if !got.Equal(date(2024, time.March, 31)) {
		t.Errorf("expected 2024-03-31, got %v", got)
	}
}

func TestMonthCursor_NonLeapFebruary(t *testing.T) {
	cursor := revenue.NewMonthCursor(date(2025, time.January, 31))
	if got := cursor.Next(); !got.Equal(date(2025, time.February, 28)) {
		t.Errorf("expected 2025-02-28, got %v", got)
	}
}

func TestEndOfMonth_KeepsTimeOfDay(t *testing.T) {
	in := time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC)
	got := revenue.EndOfMonth(in)

	if got.Day() != 30 || got.Hour() != 12 {
		t.Errorf("expected Apr 30 at noon, got %v", got)
	}
}

func TestSameOrBeforeDay_IgnoresTimeOfDay(t *testing.T) {
	noon := date(2025, time.May, 31)
	morning := time.Date(2025, time.May, 31, 8, 0, 0, 0, time.UTC)

	if !revenue.SameOrBeforeDay(noon, morning) {
		t.Error("noon should count as the same day as the morning")
	}
	if revenue.SameOrBeforeDay(date(2025, time.June, 1), morning) {
		t.Error("next day must not be on or before")
	}
}
