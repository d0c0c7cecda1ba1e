// Package timesheet converts raw time entries into worked-duration figures
// and groups them by reporting period. It is pure computation: no storage,
// no clock, no caching, so every caller recomputes from the entries it holds.
package timesheet

import (
	"fmt"
	"strconv"
	"strings"

	"orderline/internal/domain"
)

// Worked is the outcome of the duration calculation for one entry. Open
// means the entry has no end time yet; such entries are shown but never
// contribute to a total.
type Worked struct {
	Minutes int
	Open    bool
}

// EntryMinutes computes the net worked minutes for a single entry:
// (end - start) - break. Travel time is informational and never subtracted.
// The result is not clamped; a break longer than the shift yields a negative
// value and it is the caller's policy whether to reject such data.
func EntryMinutes(e domain.TimeEntry) (Worked, error) {
	start, err := ParseClock(e.Start)
	if err != nil {
		return Worked{}, domain.ValidationError{Field: "start", Reason: err.Error()}
	}
	if e.End == nil {
		return Worked{Open: true}, nil
	}
	end, err := ParseClock(*e.End)
	if err != nil {
		return Worked{}, domain.ValidationError{Field: "end", Reason: err.Error()}
	}
	return Worked{Minutes: end - start - e.BreakMinutes}, nil
}

// ParseClock parses a wall-clock time of day ("HH:MM" or "H:MM") into
// minutes since midnight.
func ParseClock(s string) (int, error) {
	h, m, err := splitClock(s)
	if err != nil {
		return 0, err
	}
	if h > 23 {
		return 0, fmt.Errorf("hour %d out of range", h)
	}
	return h*60 + m, nil
}

// ParseOffset parses a duration offset such as a break or travel time.
// Accepted forms: "HH:MM" and a bare minute count ("90"). Unlike a clock
// time the hour part is unbounded.
func ParseOffset(s string) (int, error) {
	if !strings.Contains(s, ":") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("not a duration: %q", s)
		}
		return n, nil
	}
	h, m, err := splitClock(s)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

func splitClock(s string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	// HH:MM:SS input is tolerated; seconds are dropped.
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, fmt.Errorf("not a time: %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("bad minute in %q", s)
	}
	return h, m, nil
}

// FormatHHMM renders minutes as a zero-padded "HH:MM" figure. Negative
// values keep their sign ("-00:30") so bad data stays visible.
func FormatHHMM(minutes int) string {
	sign := ""
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%02d:%02d", sign, minutes/60, minutes%60)
}

// FormatHours renders minutes as "3h 30m" for interactive display.
func FormatHours(minutes int) string {
	sign := ""
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%dh %dm", sign, minutes/60, minutes%60)
}
