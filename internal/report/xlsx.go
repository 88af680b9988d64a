package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/roach88/msgharness/internal/harness"
	"github.com/roach88/msgharness/internal/layout"
)

// Sheet names of the workbook.
const (
	ResultsSheet  = "Results"
	FindingsSheet = "Findings"
)

const (
	failColor = "FF5900"
	skipColor = "D9D9D9"
	timeFmt   = "2006-01-02 15:04:05"
)

var (
	resultHeaders  = []any{"Test", "Description", "Status", "Slot", "Queue", "Format", "Outcome"}
	findingHeaders = []any{"Test", "Kind", "Slot", "Queue", "Message", "Diff"}
)

// WriteXLSX writes a workbook with one row per result slot and one row per
// finding.
func WriteXLSX(path string, res *harness.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(FindingsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	failStyle, err := fillStyle(f, failColor)
	if err != nil {
		return err
	}
	skipStyle, err := fillStyle(f, skipColor)
	if err != nil {
		return err
	}

	w := &sheetWriter{f: f}
	w.row(ResultsSheet, 1, []any{"Run", res.RunID, "Started", res.Started.Format(timeFmt), "Finished", res.Finished.Format(timeFmt)})
	w.row(ResultsSheet, 2, resultHeaders)
	row := 3
	for _, tr := range res.Tests {
		status := Status(tr)
		style := 0
		switch status {
		case StatusFail:
			style = failStyle
		case StatusSkip:
			style = skipStyle
		}

		if len(tr.Slots) == 0 {
			w.row(ResultsSheet, row, []any{tr.Index, tr.Description, status})
			w.style(ResultsSheet, row, len(resultHeaders), style)
			row++
			continue
		}
		for _, s := range tr.Slots {
			w.row(ResultsSheet, row, []any{tr.Index, tr.Description, status,
				layout.Name(s.Slot), s.Queue, string(s.Format), s.Outcome})
			w.style(ResultsSheet, row, len(resultHeaders), style)
			row++
		}
	}

	w.row(FindingsSheet, 1, findingHeaders)
	row = 2
	for _, tr := range res.Tests {
		for _, fd := range tr.Findings {
			slot := ""
			if fd.Slot > 0 {
				slot = layout.Name(fd.Slot)
			}
			w.row(FindingsSheet, row, []any{tr.Index, string(fd.Kind), slot, fd.Queue, fd.Message, fd.Diff})
			row++
		}
	}

	for _, sheet := range []string{ResultsSheet, FindingsSheet} {
		w.widths(sheet)
	}
	if w.err != nil {
		return fmt.Errorf("failed to fill workbook: %w", w.err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func fillStyle(f *excelize.File, color string) (int, error) {
	id, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create style: %w", err)
	}
	return id, nil
}

// sheetWriter keeps the first error of a sequence of cell writes.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) row(sheet string, row int, values []any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

func (w *sheetWriter) style(sheet string, row, cols, style int) {
	if w.err != nil || style == 0 {
		return
	}
	from, _ := excelize.CoordinatesToCellName(1, row)
	to, _ := excelize.CoordinatesToCellName(cols, row)
	w.err = w.f.SetCellStyle(sheet, from, to, style)
}

func (w *sheetWriter) widths(sheet string) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetColWidth(sheet, "A", "D", 12)
	if w.err == nil {
		w.err = w.f.SetColWidth(sheet, "E", "G", 30)
	}
}
