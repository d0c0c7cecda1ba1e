// Package report turns an aggregation result into export byte streams.
// Both output formats are serializations of the same computed rows; nothing
// here recomputes a duration, so the spreadsheet and the document can never
// disagree with the interactive table.
package report

import (
	"fmt"
	"time"

	"orderline/internal/domain"
	"orderline/internal/timesheet"
)

const (
	FormatSpreadsheet = "xlsx"
	FormatDocument    = "html"
)

// OpenMarker is the total-hours cell for an entry that is still running.
const OpenMarker = "in progress"

// SpreadsheetHeader is the fixed column order of the spreadsheet export.
var SpreadsheetHeader = []string{
	"Work Order", "Worker", "Date", "Start Time", "End Time",
	"Break", "Travel Time", "Total Hours", "Description",
}

// DocumentHeader is the fixed column order of the document export.
var DocumentHeader = []string{
	"Worker", "Date", "Start", "End", "Break", "Travel", "Total", "Description",
}

// RenderError reports a failure to produce an output stream. It is not
// retried here; the caller decides.
type RenderError struct {
	Format string
	Err    error
}

func (e RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Format, e.Err)
}

func (e RenderError) Unwrap() error { return e.Err }

// Row is one formatted line of a timesheet export.
type Row struct {
	Worker      string
	Date        string
	Start       string
	End         string
	Break       string
	Travel      string
	Total       string
	Description string
}

// Sheet is the shared input to every renderer: one work order, one
// aggregation result, already formatted.
type Sheet struct {
	WorkOrder   domain.WorkOrder
	PeriodLabel string
	GeneratedAt time.Time
	Rows        []Row
}

// Build formats an aggregation result into renderer rows. names maps worker
// ids to display names; unknown ids fall back to the id itself.
func Build(res timesheet.Result, workOrder domain.WorkOrder, names map[string]string, generatedAt time.Time) Sheet {
	sheet := Sheet{
		WorkOrder:   workOrder,
		PeriodLabel: res.Period.Label(),
		GeneratedAt: generatedAt,
	}
	for _, row := range res.Rows {
		e := row.Entry
		r := Row{
			Worker:      workerName(names, e.WorkerID),
			Date:        e.Date,
			Start:       e.Start,
			Break:       timesheet.FormatHHMM(e.BreakMinutes),
			Travel:      timesheet.FormatHHMM(e.TravelMinutes),
			Description: e.Description,
		}
		if row.Open {
			r.Total = OpenMarker
		} else {
			r.End = *e.End
			r.Total = timesheet.FormatHHMM(row.Minutes)
		}
		sheet.Rows = append(sheet.Rows, r)
	}
	return sheet
}

// Render serializes the sheet in the requested format.
func Render(sheet Sheet, format string) ([]byte, error) {
	switch format {
	case FormatSpreadsheet:
		return renderSpreadsheet(sheet)
	case FormatDocument:
		return renderDocument(sheet)
	}
	return nil, domain.ValidationError{Field: "format", Reason: fmt.Sprintf("unknown format %q", format)}
}

// Filename returns the export filename for a work order.
func Filename(workOrderID, format string) string {
	return fmt.Sprintf("workorder-%s-timesheet.%s", workOrderID, format)
}

// ContentType returns the MIME type for a format.
func ContentType(format string) string {
	switch format {
	case FormatSpreadsheet:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatDocument:
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}

func workerName(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}
