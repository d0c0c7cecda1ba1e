package timesheet

import (
	"fmt"
	"time"

	"orderline/internal/domain"
)

const (
	KindNone  = "none"
	KindDay   = "day"
	KindWeek  = "week"
	KindMonth = "month"
)

// Selector scopes an aggregation to a reporting period. Date carries the
// reference point: a calendar date for day and week (any date inside the
// target week), a "2006-01" year-month for month. The zero Selector is None.
type Selector struct {
	Kind string
	Date string
}

// None is the explicit "no period restriction" selector. Callers must ask
// for it; a malformed selector never falls back to it.
var None = Selector{Kind: KindNone}

// Range is an inclusive date range with the canonical bucket key for the
// period it covers. Two selectors inside the same week or month resolve to
// the same BucketKey.
type Range struct {
	Start     string
	End       string
	BucketKey string
}

// Contains reports whether a calendar date falls inside the range. Dates are
// 2006-01-02 strings, so lexical comparison is date comparison.
func (r Range) Contains(date string) bool {
	return date >= r.Start && date <= r.End
}

// ParseSelector builds a Selector from the caller's period filter input.
// At most one of day, week, month may be set.
func ParseSelector(day, week, month string) (Selector, error) {
	set := 0
	for _, v := range []string{day, week, month} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return None, domain.ValidationError{Field: "period", Reason: "day, week and month are mutually exclusive"}
	}
	switch {
	case day != "":
		return Selector{Kind: KindDay, Date: day}, nil
	case week != "":
		return Selector{Kind: KindWeek, Date: week}, nil
	case month != "":
		return Selector{Kind: KindMonth, Date: month}, nil
	}
	return None, nil
}

// Resolve computes the inclusive date range and bucket key for the selector.
// Resolving None is an error: an unrestricted query is a distinct choice the
// caller makes by not resolving at all.
func (s Selector) Resolve() (Range, error) {
	switch s.Kind {
	case KindDay:
		d, err := parseDate(s.Kind, s.Date)
		if err != nil {
			return Range{}, err
		}
		iso := d.Format(time.DateOnly)
		return Range{Start: iso, End: iso, BucketKey: iso}, nil
	case KindWeek:
		d, err := parseDate(s.Kind, s.Date)
		if err != nil {
			return Range{}, err
		}
		start := startOfWeek(d)
		return Range{
			Start:     start.Format(time.DateOnly),
			End:       start.AddDate(0, 0, 6).Format(time.DateOnly),
			BucketKey: start.Format(time.DateOnly),
		}, nil
	case KindMonth:
		m, err := time.Parse("2006-01", s.Date)
		if err != nil {
			return Range{}, domain.ValidationError{Field: "month", Reason: fmt.Sprintf("not a year-month: %q", s.Date)}
		}
		first := time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Range{
			Start:     first.Format(time.DateOnly),
			End:       first.AddDate(0, 1, -1).Format(time.DateOnly),
			BucketKey: first.Format("2006-01"),
		}, nil
	case KindNone, "":
		return Range{}, domain.ValidationError{Field: "period", Reason: "no period selected"}
	}
	return Range{}, domain.ValidationError{Field: "period", Reason: fmt.Sprintf("unknown kind %q", s.Kind)}
}

// Label renders the selector for table captions and export headers, e.g.
// "Week 45: 04 Nov - 10 Nov 2024".
func (s Selector) Label() string {
	switch s.Kind {
	case KindDay:
		if d, err := parseDate(s.Kind, s.Date); err == nil {
			return "Day " + d.Format("02 Jan 2006")
		}
	case KindWeek:
		if d, err := parseDate(s.Kind, s.Date); err == nil {
			start := startOfWeek(d)
			_, week := start.ISOWeek()
			return fmt.Sprintf("Week %d: %s - %s", week,
				start.Format("02 Jan"), start.AddDate(0, 0, 6).Format("02 Jan 2006"))
		}
	case KindMonth:
		if m, err := time.Parse("2006-01", s.Date); err == nil {
			return m.Format("January 2006")
		}
	}
	return ""
}

// startOfWeek returns the Monday on or before d. Weeks start on Monday.
func startOfWeek(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func parseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, domain.ValidationError{Field: field, Reason: fmt.Sprintf("not a date: %q", value)}
	}
	return d, nil
}
