// Package report renders run results for people: a console summary table and
// an optional spreadsheet.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/roach88/msgharness/internal/harness"
	"github.com/roach88/msgharness/internal/layout"
)

// Status labels.
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

// Status returns the label of a test result.
func Status(t harness.TestResult) string {
	switch {
	case t.Skipped:
		return StatusSkip
	case t.Pass:
		return StatusPass
	default:
		return StatusFail
	}
}

// WriteSummary renders one table row per test followed by the totals.
func WriteSummary(w io.Writer, res *harness.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleRounded
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault
	t.SetStyle(style)
	t.AppendHeader(table.Row{"Test", "Description", "Result", "Slots", "Findings"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, WidthMax: 48},
		{Number: 5, WidthMax: 60},
	})

	total := 0
	for _, tr := range res.Tests {
		total += len(tr.Findings)
		t.AppendRow(table.Row{
			layout.Name(tr.Index),
			tr.Description,
			Status(tr),
			slotList(tr),
			findingKinds(tr),
		})
	}

	passed, failed, skipped := res.Counts()
	t.AppendFooter(table.Row{
		"", "Total",
		fmt.Sprintf("%d passed, %d failed, %d skipped", passed, failed, skipped),
		"", fmt.Sprintf("%d", total),
	})
	t.Render()
}

func slotList(tr harness.TestResult) string {
	names := make([]string, 0, len(tr.Slots))
	for _, s := range tr.Slots {
		names = append(names, layout.Name(s.Slot))
	}
	return strings.Join(names, " ")
}

// findingKinds counts findings per kind in first-seen order, e.g.
// "mismatch x2, trace".
func findingKinds(tr harness.TestResult) string {
	var order []harness.FindingKind
	counts := map[harness.FindingKind]int{}
	for _, f := range tr.Findings {
		if counts[f.Kind] == 0 {
			order = append(order, f.Kind)
		}
		counts[f.Kind]++
	}
	parts := make([]string, 0, len(order))
	for _, k := range order {
		if counts[k] > 1 {
			parts = append(parts, fmt.Sprintf("%s x%d", k, counts[k]))
		} else {
			parts = append(parts, string(k))
		}
	}
	return strings.Join(parts, ", ")
}
