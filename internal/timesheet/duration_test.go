package timesheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderline/internal/domain"
)

func entry(start string, end string, breakMin int) domain.TimeEntry {
	e := domain.TimeEntry{Start: start, BreakMinutes: breakMin}
	if end != "" {
		e.End = &end
	}
	return e
}

func TestEntryMinutes_FullDay(t *testing.T) {
	// 08:00-17:00 with a one hour break and half an hour of travel:
	// travel never counts, total is eight hours.
	e := entry("08:00", "17:00", 60)
	e.TravelMinutes = 30

	w, err := EntryMinutes(e)
	require.NoError(t, err)
	assert.False(t, w.Open)
	assert.Equal(t, 480, w.Minutes)
	assert.Equal(t, "08:00", FormatHHMM(w.Minutes))
}

func TestEntryMinutes_OpenEntry(t *testing.T) {
	w, err := EntryMinutes(entry("08:00", "", 60))
	require.NoError(t, err)
	assert.True(t, w.Open)
	assert.Zero(t, w.Minutes)
}

func TestEntryMinutes_NegativeNotClamped(t *testing.T) {
	// Break exceeds the shift; the raw signed value must surface so the
	// write path can decide whether to reject it.
	w, err := EntryMinutes(entry("09:00", "09:30", 60))
	require.NoError(t, err)
	assert.Equal(t, -30, w.Minutes)
	assert.Equal(t, "-00:30", FormatHHMM(w.Minutes))
}

func TestEntryMinutes_MalformedClock(t *testing.T) {
	_, err := EntryMinutes(entry("8am", "17:00", 0))
	var verr domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "start", verr.Field)

	_, err = EntryMinutes(entry("08:00", "25:00", 0))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "end", verr.Field)
}

func TestParseClock(t *testing.T) {
	for in, want := range map[string]int{
		"00:00":    0,
		"8:05":     485,
		"23:59":    1439,
		"08:00:00": 480,
	} {
		got, err := ParseClock(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "24:00", "12:60", "noon", "-1:00"} {
		_, err := ParseClock(in)
		assert.Error(t, err, in)
	}
}

func TestParseOffset(t *testing.T) {
	got, err := ParseOffset("01:30")
	require.NoError(t, err)
	assert.Equal(t, 90, got)

	got, err = ParseOffset("45")
	require.NoError(t, err)
	assert.Equal(t, 45, got)

	// Offsets are durations, not clock times: 26 hours is fine.
	got, err = ParseOffset("26:00")
	require.NoError(t, err)
	assert.Equal(t, 1560, got)

	_, err = ParseOffset("soon")
	assert.Error(t, err)
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "3h 30m", FormatHours(210))
	assert.Equal(t, "0h 0m", FormatHours(0))
	assert.Equal(t, "-1h 15m", FormatHours(-75))
}
