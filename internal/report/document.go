package report

import (
	"bytes"
	"embed"
	"html/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var documentTmpl = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// renderDocument writes the sheet as a self-contained, print-ready HTML
// page with the work order title and a generation timestamp.
func renderDocument(sheet Sheet) ([]byte, error) {
	data := struct {
		Sheet
		Headers   []string
		Generated string
	}{
		Sheet:     sheet,
		Headers:   DocumentHeader,
		Generated: sheet.GeneratedAt.Format("02-01-2006 15:04"),
	}
	var buf bytes.Buffer
	if err := documentTmpl.ExecuteTemplate(&buf, "timesheet.html.tmpl", data); err != nil {
		return nil, RenderError{Format: FormatDocument, Err: err}
	}
	return buf.Bytes(), nil
}
