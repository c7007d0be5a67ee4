package emissions

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date form accepted on the command line
const DateLayout = "2006-01-02"

// dateLayouts are tried in order when parsing user-supplied dates
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	DateLayout,
}

// PeriodKind names a relative reporting period resolved against a clock
type PeriodKind string

const (
	PeriodLastMonth   PeriodKind = "last-month"
	PeriodLast3Months PeriodKind = "last-3-months"
)

// monthStart truncates a timestamp to midnight UTC on the first of its month
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NormalizeDate parses a calendar date or ISO-8601 timestamp and coerces
// it to the first day of its month at midnight UTC. The metering service
// only accepts month boundaries. The second return reports whether the
// input was adjusted.
func NormalizeDate(value string) (time.Time, bool, error) {
	var parsed time.Time
	var err error
	for _, layout := range dateLayouts {
		parsed, err = time.Parse(layout, value)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %q", ErrInvalidDateFormat, value)
	}

	normalized := monthStart(parsed)
	return normalized, !normalized.Equal(parsed.UTC()), nil
}

// ResolvePeriod computes the month-aligned [start, end) window for a
// relative period. The end is always the first day of the current month,
// so the running month is never included.
func ResolvePeriod(kind PeriodKind, now time.Time) (time.Time, time.Time, error) {
	end := monthStart(now)
	switch kind {
	case PeriodLastMonth:
		return end.AddDate(0, -1, 0), end, nil
	case PeriodLast3Months:
		return end.AddDate(0, -3, 0), end, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q", kind)
	}
}

// DefaultRange returns the window used when no dates were requested,
// which is the previous full calendar month.
func DefaultRange(now time.Time) (time.Time, time.Time) {
	start, end, _ := ResolvePeriod(PeriodLastMonth, now)
	return start, end
}

// NewTimeRange validates ordering and wraps the window
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if !start.Before(end) {
		return TimeRange{}, fmt.Errorf("%w: %s >= %s",
			ErrInvalidDateRange, start.Format(DateLayout), end.Format(DateLayout))
	}
	return TimeRange{Start: start, End: end}, nil
}
