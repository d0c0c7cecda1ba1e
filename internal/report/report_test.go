package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"orderline/internal/domain"
	"orderline/internal/timesheet"
)

func sampleResult(t *testing.T) timesheet.Result {
	t.Helper()
	end1, end2 := "17:00", "12:00"
	entries := []domain.TimeEntry{
		{ID: "e1", WorkOrderID: "wo-7", WorkerID: "anna", Date: "2024-11-06", Start: "08:00", End: &end1, BreakMinutes: 60, TravelMinutes: 30, Description: "cabling"},
		{ID: "e2", WorkOrderID: "wo-7", WorkerID: "bram", Date: "2024-11-05", Start: "08:00", End: &end2},
		{ID: "e3", WorkOrderID: "wo-7", WorkerID: "anna", Date: "2024-11-04", Start: "13:00"},
	}
	res, err := timesheet.Aggregate(entries, "wo-7", timesheet.Selector{Kind: timesheet.KindWeek, Date: "2024-11-06"})
	require.NoError(t, err)
	return res
}

func sampleSheet(t *testing.T) Sheet {
	order := domain.WorkOrder{ID: "wo-7", Title: "Boiler replacement"}
	names := map[string]string{"anna": "Anna Smit"}
	return Build(sampleResult(t), order, names, time.Date(2024, 11, 8, 9, 30, 0, 0, time.UTC))
}

func TestBuild(t *testing.T) {
	sheet := sampleSheet(t)
	require.Len(t, sheet.Rows, 3)

	// Rows arrive date-descending from the aggregation.
	first := sheet.Rows[0]
	assert.Equal(t, "Anna Smit", first.Worker)
	assert.Equal(t, "2024-11-06", first.Date)
	assert.Equal(t, "08:00", first.Total)
	assert.Equal(t, "01:00", first.Break)
	assert.Equal(t, "00:30", first.Travel)

	// Unknown worker id falls back to the id.
	assert.Equal(t, "bram", sheet.Rows[1].Worker)
	assert.Equal(t, "04:00", sheet.Rows[1].Total)

	// Open entry keeps its marker and an empty end cell.
	open := sheet.Rows[2]
	assert.Equal(t, OpenMarker, open.Total)
	assert.Equal(t, "", open.End)

	assert.Equal(t, "Week 45: 04 Nov - 10 Nov 2024", sheet.PeriodLabel)
}

func spreadsheetRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	return rows
}

func TestRenderersAgree(t *testing.T) {
	sheet := sampleSheet(t)

	xlsxData, err := Render(sheet, FormatSpreadsheet)
	require.NoError(t, err)
	htmlData, err := Render(sheet, FormatDocument)
	require.NoError(t, err)

	rows := spreadsheetRows(t, xlsxData)
	require.Len(t, rows, len(sheet.Rows)+1, "header plus one row per entry")
	assert.Equal(t, SpreadsheetHeader, rows[0])

	html := string(htmlData)
	assert.Equal(t, len(sheet.Rows)+1, strings.Count(html, "<tr>"))

	// Same total-hours string in both serializations, row by row.
	for i, r := range sheet.Rows {
		assert.Equal(t, r.Total, rows[i+1][7], "row %d", i)
		assert.Contains(t, html, "<td>"+r.Total+"</td>")
	}
}

func TestRenderSpreadsheet_Cells(t *testing.T) {
	sheet := sampleSheet(t)
	data, err := Render(sheet, FormatSpreadsheet)
	require.NoError(t, err)

	rows := spreadsheetRows(t, data)
	assert.Equal(t, []string{
		"Boiler replacement", "Anna Smit", "2024-11-06", "08:00", "17:00",
		"01:00", "00:30", "08:00", "cabling",
	}, rows[1])
}

func TestRenderDocument_Header(t *testing.T) {
	sheet := sampleSheet(t)
	data, err := Render(sheet, FormatDocument)
	require.NoError(t, err)

	html := string(data)
	assert.Contains(t, html, "<h2>Work Order: Boiler replacement</h2>")
	assert.Contains(t, html, "Generated at: 08-11-2024 09:30")
	assert.Contains(t, html, "Period: Week 45")
	for _, h := range DocumentHeader {
		assert.Contains(t, html, "<th>"+h+"</th>")
	}
}

func TestRenderEmptyResult_HeaderOnly(t *testing.T) {
	order := domain.WorkOrder{ID: "wo-9", Title: "Empty order"}
	res, err := timesheet.Aggregate(nil, "wo-9", timesheet.None)
	require.NoError(t, err)
	sheet := Build(res, order, nil, time.Now())

	xlsxData, err := Render(sheet, FormatSpreadsheet)
	require.NoError(t, err)
	assert.Len(t, spreadsheetRows(t, xlsxData), 1)

	htmlData, err := Render(sheet, FormatDocument)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(htmlData), "<tr>"))
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := Render(sampleSheet(t), "pdf")
	var verr domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "workorder-wo-7-timesheet.xlsx", Filename("wo-7", FormatSpreadsheet))
	assert.Equal(t, "workorder-wo-7-timesheet.html", Filename("wo-7", FormatDocument))
}
