package timesheet

import (
	"sort"

	"orderline/internal/domain"
)

// Row is one listed entry with its computed duration.
type Row struct {
	Entry   domain.TimeEntry
	Minutes int
	Open    bool
}

// Result is the aggregation over a set of entries. It is a derived view:
// never persisted, recomputed on every query.
//
// Grouped and PeriodTotal are only populated when a period selector was
// active; an unrestricted aggregation is a flat listing and callers wanting
// a total must pick a period or sum Rows themselves.
type Result struct {
	Rows        []Row
	Grouped     map[string]int
	PeriodTotal int
	Period      Selector
	Range       *Range
}

// Filtered reports whether a period restriction was applied.
func (r Result) Filtered() bool { return r.Range != nil }

// Aggregate filters entries down to one work order and an optional period,
// computes per-entry durations and, when a period is active, per-worker and
// grand totals. Open entries (no end time) are listed but excluded from all
// sums regardless of input order.
func Aggregate(entries []domain.TimeEntry, workOrderID string, sel Selector) (Result, error) {
	res := Result{Period: sel}
	var rng *Range
	if sel.Kind != KindNone && sel.Kind != "" {
		r, err := sel.Resolve()
		if err != nil {
			return Result{}, err
		}
		rng = &r
		res.Range = rng
		res.Grouped = map[string]int{}
	}

	for _, e := range entries {
		if e.WorkOrderID != workOrderID {
			continue
		}
		if rng != nil && !rng.Contains(e.Date) {
			continue
		}
		w, err := EntryMinutes(e)
		if err != nil {
			return Result{}, err
		}
		res.Rows = append(res.Rows, Row{Entry: e, Minutes: w.Minutes, Open: w.Open})
		if rng != nil && !w.Open {
			res.Grouped[e.WorkerID] += w.Minutes
			res.PeriodTotal += w.Minutes
		}
	}

	sort.SliceStable(res.Rows, func(i, j int) bool {
		a, b := res.Rows[i].Entry, res.Rows[j].Entry
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		return a.ID > b.ID
	})
	return res, nil
}
