package schedule

import (
	"testing"
	"time"
)

func TestParseCron_InvalidFieldCount(t *testing.T) {
	if _, err := ParseCron("* * * *"); err == nil {
		t.Fatal("expected error for 4-field expression")
	}
}

func TestParseCron_OutOfRange(t *testing.T) {
	if _, err := ParseCron("60 * * * *"); err == nil {
		t.Fatal("expected error for minute out of range")
	}
}

func TestCron_NextAfter_EveryFifteenMinutes(t *testing.T) {
	c, err := ParseCron("*/15 * * * *")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	cur := mustUTC("2025-01-01T14:07:00Z")
	wantSeq := []string{
		"2025-01-01T14:15:00Z",
		"2025-01-01T14:30:00Z",
		"2025-01-01T14:45:00Z",
		"2025-01-01T15:00:00Z",
	}
	for _, want := range wantSeq {
		next := c.NextAfter(cur)
		if !next.Equal(mustUTC(want)) {
			t.Fatalf("got %v, want %v", next, want)
		}
		cur = next
	}
}

func TestCron_NextAfter_DayOfWeekAndDayOfMonthAreANDed(t *testing.T) {
	// Only instants that are both day-of-month 1 AND a Monday qualify.
	c, err := ParseCron("0 0 1 * 1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	next := c.NextAfter(mustUTC("2025-01-01T00:00:00Z"))
	if next.Day() != 1 {
		t.Errorf("expected day-of-month 1, got %d", next.Day())
	}
	if next.Weekday() != time.Monday {
		t.Errorf("expected Monday, got %v", next.Weekday())
	}
}

func TestCron_NextAfter_SundayIsZero(t *testing.T) {
	c, err := ParseCron("0 0 * * 0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	next := c.NextAfter(mustUTC("2025-01-01T00:00:00Z")) // a Wednesday
	if next.Weekday() != time.Sunday {
		t.Errorf("expected Sunday, got %v", next.Weekday())
	}
}

func TestCron_NextAfter_NoSkippedInstant(t *testing.T) {
	c, err := ParseCron("0,30 * * * *")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	after := mustUTC("2025-01-01T00:05:00Z")
	next := c.NextAfter(after)
	want := mustUTC("2025-01-01T00:30:00Z")
	if !next.Equal(want) {
		t.Fatalf("got %v, want %v", next, want)
	}
}
