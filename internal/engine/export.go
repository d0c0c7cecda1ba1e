package engine

import (
	"context"

	"orderline/internal/report"
	"orderline/internal/timesheet"
)

// ExportTimesheet renders a work order's timesheet and returns the byte
// stream plus the conventional filename. Spreadsheet and document exports
// share one aggregation pass: whatever filter is active, both formats
// serialize the exact same rows.
func (e Engine) ExportTimesheet(ctx context.Context, workOrderID string, sel timesheet.Selector, format string) ([]byte, string, error) {
	order, err := e.Repo.GetWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, "", err
	}
	res, err := e.Timesheet(ctx, workOrderID, sel)
	if err != nil {
		return nil, "", err
	}
	names, err := e.Repo.WorkerNames(ctx)
	if err != nil {
		return nil, "", err
	}
	sheet := report.Build(res, order, names, e.now())
	data, err := report.Render(sheet, format)
	if err != nil {
		return nil, "", err
	}
	return data, report.Filename(order.ID, format), nil
}
