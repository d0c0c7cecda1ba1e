package report

import (
	"github.com/xuri/excelize/v2"
)

const sheetName = "Timesheet"

// renderSpreadsheet writes the sheet as an .xlsx workbook: one styled
// header row, one data row per entry, zero data rows when nothing matched.
func renderSpreadsheet(sheet Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, RenderError{Format: FormatSpreadsheet, Err: err}
	}
	header := make([]any, len(SpreadsheetHeader))
	for i, h := range SpreadsheetHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, RenderError{Format: FormatSpreadsheet, Err: err}
	}
	// Bold header, cosmetic only.
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, RenderError{Format: FormatSpreadsheet, Err: err}
	}
	last, _ := excelize.CoordinatesToCellName(len(SpreadsheetHeader), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, style); err != nil {
		return nil, RenderError{Format: FormatSpreadsheet, Err: err}
	}

	for i, r := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, RenderError{Format: FormatSpreadsheet, Err: err}
		}
		row := []any{
			sheet.WorkOrder.Title,
			r.Worker,
			r.Date,
			r.Start,
			r.End,
			r.Break,
			r.Travel,
			r.Total,
			r.Description,
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, RenderError{Format: FormatSpreadsheet, Err: err}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, RenderError{Format: FormatSpreadsheet, Err: err}
	}
	return buf.Bytes(), nil
}
