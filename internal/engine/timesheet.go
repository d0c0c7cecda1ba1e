package engine

import (
	"context"

	"orderline/internal/repo"
	"orderline/internal/timesheet"
)

// Timesheet aggregates the entries of one work order under an optional
// period selector. The work-order and date-range filters are pushed into
// the store query; the aggregation itself runs in memory. With the pushdown
// option on, per-worker totals for filtered queries come from a store-side
// SUM instead — same contract, same numbers, only the work moves.
func (e Engine) Timesheet(ctx context.Context, workOrderID string, sel timesheet.Selector) (timesheet.Result, error) {
	if _, err := e.Repo.GetWorkOrder(ctx, workOrderID); err != nil {
		return timesheet.Result{}, err
	}
	var fetchRange *repo.DateRange
	if sel.Kind != timesheet.KindNone && sel.Kind != "" {
		rng, err := sel.Resolve()
		if err != nil {
			return timesheet.Result{}, err
		}
		fetchRange = &repo.DateRange{Start: rng.Start, End: rng.End}
	}
	entries, err := e.Repo.FetchTimeEntries(ctx, workOrderID, fetchRange)
	if err != nil {
		return timesheet.Result{}, err
	}
	res, err := timesheet.Aggregate(entries, workOrderID, sel)
	if err != nil {
		return timesheet.Result{}, err
	}
	if fetchRange != nil && e.pushdownEnabled() {
		grouped, err := e.Repo.GroupedTotals(ctx, workOrderID, *fetchRange)
		if err != nil {
			return timesheet.Result{}, err
		}
		total := 0
		for _, v := range grouped {
			total += v
		}
		res.Grouped = grouped
		res.PeriodTotal = total
	}
	return res, nil
}

func (e Engine) pushdownEnabled() bool {
	return e.Config != nil && e.Config.Aggregation.Pushdown
}
