package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/waftester/contractfuzz/pkg/oracle"
	"github.com/waftester/contractfuzz/pkg/registry"
)

const (
	sheetName          = "Results"
	defaultColumnWidth = 22
	errorFillColor     = "#FFC7CE"
	warningFillColor   = "#FFEB9C"
	maxCellLength      = 32767
)

var xlsxHeaders = []string{
	"ID", "Fuzzer", "Scenario", "Expected Result", "Method", "Path", "URL",
	"Request Payload", "Status Code", "Response Body", "Result", "Reason", "Details",
}

// XLSXExporter renders the finished run as a spreadsheet. Records are taken
// from the run on Close; skipped records are left out like in every other
// exporter.
type XLSXExporter struct {
	mu     sync.Mutex
	w      io.Writer
	target string
}

// NewXLSXExporter writes the workbook to w on Close.
func NewXLSXExporter(w io.Writer, target string) *XLSXExporter {
	return &XLSXExporter{w: w, target: target}
}

// Export is a no-op; the workbook is built from the run on Close.
func (e *XLSXExporter) Export(registry.Record) error { return nil }

// Close builds and writes the workbook.
func (e *XLSXExporter) Close(run registry.Run) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	last, _ := excelize.ColumnNumberToName(len(xlsxHeaders))
	if err := f.SetColWidth(sheetName, "A", last, defaultColumnWidth); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &xlsxHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	errorStyle, err := fillStyle(f, errorFillColor)
	if err != nil {
		return err
	}
	warningStyle, err := fillStyle(f, warningFillColor)
	if err != nil {
		return err
	}
	_ = f.SetCellStyle(sheetName, "A1", last+"1", headerStyle)

	row := 2
	for _, rec := range run.Records {
		if rec.Result == oracle.Skipped {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := recordRow(rec)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		style := 0
		switch rec.Result {
		case oracle.Error:
			style = errorStyle
		case oracle.Warning:
			style = warningStyle
		}
		if style != 0 {
			end := fmt.Sprintf("%s%d", last, row)
			if err := f.SetCellStyle(sheetName, cell, end, style); err != nil {
				return fmt.Errorf("style row %d: %w", row, err)
			}
		}
		row++
	}

	if err := e.writeSummary(f, row+1, NewSummary(run, e.target)); err != nil {
		return err
	}
	if _, err := f.WriteTo(e.w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (e *XLSXExporter) writeSummary(f *excelize.File, start int, s Summary) error {
	lines := [][2]any{
		{"Summary", ""},
		{"Run ID", s.RunID},
		{"Target", s.Target},
		{"Duration", s.Duration.String()},
		{"Total", s.Total},
		{"Success", s.Stats.Success},
		{"Warnings", s.Stats.Warnings},
		{"Errors", s.Stats.Errors},
		{"Skipped", s.Stats.Skipped},
	}
	for i, l := range lines {
		row := start + i
		if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), l[0]); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		if err := f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), l[1]); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return nil
}

func fillStyle(f *excelize.File, color string) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
	})
	if err != nil {
		return 0, fmt.Errorf("create fill style: %w", err)
	}
	return style, nil
}

func recordRow(rec registry.Record) []any {
	var method, payload, body string
	var status any
	if rec.Request != nil {
		method, payload = rec.Request.Method, rec.Request.Payload
	}
	if rec.Response != nil {
		status, body = rec.Response.StatusCode, rec.Response.Body
	}
	return []any{
		rec.ID,
		rec.Fuzzer,
		rec.Scenario,
		rec.ExpectedResult,
		strings.ToUpper(method),
		rec.Path,
		rec.FullURL,
		truncateCell(payload),
		status,
		truncateCell(body),
		rec.Result.String(),
		string(rec.Reason),
		rec.Detail,
	}
}

// Cells hold at most 32767 characters.
func truncateCell(s string) string {
	if len(s) <= maxCellLength {
		return s
	}
	return s[:maxCellLength]
}
