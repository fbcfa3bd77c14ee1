// Package schedule computes the next UTC fire time for a job's recurrence
// rule. It has no dependency on the store or the engine: NextRun is a pure
// function of a Schedule, the current instant, and (for interval schedules)
// the last recorded run.
package schedule

import (
	"fmt"
	"time"

	"github.com/adhocore/gronx"
)

// Unit is the interval schedule's time unit.
type Unit string

const (
	Seconds Unit = "seconds"
	Minutes Unit = "minutes"
	Hours   Unit = "hours"
	Days    Unit = "days"
	Weeks   Unit = "weeks"
	Months  Unit = "months"
	Years   Unit = "years"
)

// Schedule is exactly one of an interval shape or a cron shape. Cron is
// non-empty XOR (Interval > 0 and Unit set).
type Schedule struct {
	// Interval shape.
	Interval int
	Unit     Unit
	At       string // "HH:MM", only valid with Unit == Days or Weeks

	// Cron shape.
	Cron string
}

// IsCron reports whether this is the cron shape.
func (s Schedule) IsCron() bool { return s.Cron != "" }

// Validate checks §4.2/§3's shape invariants: exactly one shape present,
// "at" only paired with days/weeks, interval positive.
func (s Schedule) Validate() error {
	if s.IsCron() {
		if s.Interval != 0 || s.Unit != "" || s.At != "" {
			return fmt.Errorf("%w: cron schedule must not set interval fields", ErrInvalidJob)
		}
		// Cheap syntax check before the custom walker: gronx only reports
		// valid/invalid, so a malformed expression fails fast with a generic
		// "malformed cron expression" error before ParseCron runs.
		if !gronx.New().IsValid(s.Cron) {
			return fmt.Errorf("%w: malformed cron expression %q", ErrInvalidCron, s.Cron)
		}
		if _, err := ParseCron(s.Cron); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCron, err)
		}
		return nil
	}

	if s.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidJob)
	}
	switch s.Unit {
	case Seconds, Minutes, Hours, Days, Weeks, Months, Years:
	default:
		return fmt.Errorf("%w: unknown unit %q", ErrInvalidJob, s.Unit)
	}
	if s.At != "" {
		if s.Unit != Days && s.Unit != Weeks {
			return fmt.Errorf("%w: 'at' only valid with unit days or weeks", ErrInvalidSchedule)
		}
		if _, _, err := parseHHMM(s.At); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidJob, err)
		}
	}
	return nil
}

// NextRun computes the next UTC fire time. now and lastRun (if non-nil) are
// expected to already be in UTC; callers should call .UTC() first.
func NextRun(s Schedule, now time.Time, lastRun *time.Time) (time.Time, error) {
	if s.IsCron() {
		cr, err := ParseCron(s.Cron)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidCron, err)
		}
		return cr.NextAfter(now), nil
	}

	if err := s.Validate(); err != nil {
		return time.Time{}, err
	}

	if s.At != "" {
		return nextAtTime(s, now)
	}

	if lastRun != nil {
		next := addUnits(*lastRun, s.Interval, s.Unit)
		for !next.After(now) {
			next = addUnits(next, s.Interval, s.Unit)
		}
		return next, nil
	}

	return addUnits(now, s.Interval, s.Unit), nil
}

// nextAtTime implements the "interval with at" contract: today's UTC HH:MM;
// if that instant is <= now, add interval days/weeks.
func nextAtTime(s Schedule, now time.Time) (time.Time, error) {
	hour, minute, err := parseHHMM(s.At)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}

	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !candidate.After(now) {
		candidate = addUnits(candidate, s.Interval, s.Unit)
	}
	return candidate, nil
}

func parseHHMM(at string) (hour, minute int, err error) {
	if len(at) != 5 || at[2] != ':' {
		return 0, 0, fmt.Errorf("'at' must be in HH:MM format (00:00-23:59): %q", at)
	}
	if _, err := fmt.Sscanf(at, "%02d:%02d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("'at' must be in HH:MM format (00:00-23:59): %q", at)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("'at' must be in HH:MM format (00:00-23:59): %q", at)
	}
	return hour, minute, nil
}

// addUnits advances t by interval*unit. Months/years are calendar-aware and
// go through clampedAddDate, so an overflowing day is clamped to the last
// day of the target month (Jan 31 + 1 month = Feb 28 in a non-leap year)
// rather than rolling into the next month as time.AddDate would.
func addUnits(t time.Time, interval int, unit Unit) time.Time {
	switch unit {
	case Seconds:
		return t.Add(time.Duration(interval) * time.Second)
	case Minutes:
		return t.Add(time.Duration(interval) * time.Minute)
	case Hours:
		return t.Add(time.Duration(interval) * time.Hour)
	case Days:
		return t.AddDate(0, 0, interval)
	case Weeks:
		return t.AddDate(0, 0, interval*7)
	case Months:
		return clampedAddDate(t, 0, interval, 0)
	case Years:
		return clampedAddDate(t, interval, 0, 0)
	default:
		return t
	}
}

// clampedAddDate adds calendar months/years, clamping the day to the last
// day of the resulting month instead of letting it roll into the next
// month (time.AddDate's default behavior), matching the spec's "day
// clamped to last day of month when necessary".
func clampedAddDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	targetMonth := int(m) - 1 + months
	targetYear := y + years + targetMonth/12
	targetMonth = targetMonth % 12
	if targetMonth < 0 {
		targetMonth += 12
		targetYear--
	}
	firstOfMonth := time.Date(targetYear, time.Month(targetMonth+1), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfMonth.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(targetYear, time.Month(targetMonth+1), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()).AddDate(0, 0, days)
}
