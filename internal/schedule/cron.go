package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// cronField names the five fields, in order, matching the spec's
// "minute hour day-of-month month day-of-week" layout.
type cronField int

const (
	fieldMinute cronField = iota
	fieldHour
	fieldDay
	fieldMonth
	fieldDOW
)

var cronRanges = [5][2]int{
	fieldMinute: {0, 59},
	fieldHour:   {0, 23},
	fieldDay:    {1, 31},
	fieldMonth:  {1, 12},
	fieldDOW:    {0, 6}, // 0 = Sunday, matching time.Sunday == 0
}

// Cron is a parsed 5-field cron expression: each field holds the sorted,
// deduplicated set of allowed values in that field's range.
type Cron struct {
	original string
	fields   [5][]int
}

// ParseCron parses a 5-field "minute hour dom month dow" expression.
// Grounded on the original Python CronParser's field grammar (comma lists
// of '*', integers, 'a-b' ranges, and '*/s'/'a-b/s' steps) but corrects its
// day-of-week convention: this implementation uses 0 = Sunday throughout,
// matching Go's time.Weekday and the spec's explicit range table.
func ParseCron(expr string) (*Cron, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return nil, fmt.Errorf("cron expression must have 5 fields, got %d: %q", len(parts), expr)
	}

	c := &Cron{original: expr}
	for i := range parts {
		values, err := parseCronField(parts[i], cronField(i))
		if err != nil {
			return nil, err
		}
		c.fields[i] = values
	}
	return c, nil
}

func parseCronField(field string, which cronField) ([]int, error) {
	lo, hi := cronRanges[which][0], cronRanges[which][1]
	set := map[int]struct{}{}

	for _, part := range strings.Split(field, ",") {
		if err := expandCronPart(part, lo, hi, set); err != nil {
			return nil, err
		}
	}

	values := make([]int, 0, len(set))
	for v := range set {
		if v < lo || v > hi {
			return nil, fmt.Errorf("value %d out of range (%d-%d)", v, lo, hi)
		}
		values = append(values, v)
	}
	sort.Ints(values)
	if len(values) == 0 {
		return nil, fmt.Errorf("empty cron field")
	}
	return values, nil
}

func expandCronPart(part string, lo, hi int, set map[int]struct{}) error {
	rangePart, step := part, 1
	if idx := strings.IndexByte(part, '/'); idx >= 0 {
		rangePart = part[:idx]
		s, err := strconv.Atoi(part[idx+1:])
		if err != nil || s <= 0 {
			return fmt.Errorf("invalid step in %q", part)
		}
		step = s
	}

	start, end := lo, hi
	switch {
	case rangePart == "*":
		// full range, already set
	case strings.Contains(rangePart, "-"):
		bounds := strings.SplitN(rangePart, "-", 2)
		a, err1 := strconv.Atoi(bounds[0])
		b, err2 := strconv.Atoi(bounds[1])
		if err1 != nil || err2 != nil {
			return fmt.Errorf("invalid range %q", rangePart)
		}
		start, end = a, b
	default:
		v, err := strconv.Atoi(rangePart)
		if err != nil {
			return fmt.Errorf("invalid value %q", rangePart)
		}
		start, end = v, hi
		if step == 1 {
			end = v
		}
	}

	if start > end {
		return fmt.Errorf("invalid range %d-%d", start, end)
	}
	for v := start; v <= end; v += step {
		set[v] = struct{}{}
	}
	return nil
}

// NextAfter returns the first instant strictly after `after` (truncated to
// the minute) whose minute, hour, day-of-month, month, and day-of-week all
// satisfy the expression. Day-of-month and day-of-week are ANDed together
// per spec §4.2. Minute granularity, deterministic, side-effect-free.
func (c *Cron) NextAfter(after time.Time) time.Time {
	cur := after.UTC().Truncate(time.Minute).Add(time.Minute)

	// Upper bound on iterations: searching further than a handful of years
	// means the expression can never be satisfied (e.g. Feb 30).
	deadline := cur.AddDate(5, 0, 0)

	for cur.Before(deadline) {
		if !contains(c.fields[fieldMonth], int(cur.Month())) {
			cur = firstOfNextMonth(cur)
			continue
		}
		dayOK := contains(c.fields[fieldDay], cur.Day())
		dowOK := contains(c.fields[fieldDOW], int(cur.Weekday()))
		if !(dayOK && dowOK) {
			cur = startOfNextDay(cur)
			continue
		}
		if !contains(c.fields[fieldHour], cur.Hour()) {
			cur = startOfNextHour(cur)
			continue
		}
		if !contains(c.fields[fieldMinute], cur.Minute()) {
			cur = cur.Add(time.Minute)
			continue
		}
		return cur
	}

	// Unsatisfiable expression (e.g. day=31 and month=2 only): return the
	// deadline so callers see a far-future, obviously-wrong instant rather
	// than looping forever.
	return deadline
}

func contains(values []int, v int) bool {
	i := sort.SearchInts(values, v)
	return i < len(values) && values[i] == v
}

func startOfNextDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

func startOfNextHour(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), 0, 0, 0, time.UTC).Add(time.Hour)
}

func firstOfNextMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
