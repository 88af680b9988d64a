package report

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/roach88/msgharness/internal/compare"
	"github.com/roach88/msgharness/internal/harness"
)

func sampleResult() *harness.Result {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &harness.Result{
		RunID:    "run-1",
		Started:  started,
		Finished: started.Add(25 * time.Second),
		Tests: []harness.TestResult{
			{Index: 1, Description: "route order", Pass: true, Slots: []harness.SlotResult{
				{Slot: 1, Queue: "OUT", Format: compare.FormatXML, Outcome: "match"},
			}},
			{Index: 2, Description: "split order", Slots: []harness.SlotResult{
				{Slot: 2, Queue: "OUT", Format: compare.FormatPlain, Outcome: "mismatch"},
				{Slot: 3, Queue: "OUT", Format: compare.FormatPlain, Outcome: "missing_actual"},
			}, Findings: []harness.Finding{
				{Kind: harness.FindingMismatch, Slot: 2, Queue: "OUT", Message: "slot 02: mismatch", Diff: "-a\n+b\n"},
				{Kind: harness.FindingMissingActual, Slot: 3, Queue: "OUT", Message: "no message"},
				{Kind: harness.FindingTrace, Message: "capture trace: exit 1"},
			}},
			{Index: 3, Description: "not selected", Skipped: true},
		},
	}
}

func TestStatus(t *testing.T) {
	res := sampleResult()
	assert.Equal(t, StatusPass, Status(res.Tests[0]))
	assert.Equal(t, StatusFail, Status(res.Tests[1]))
	assert.Equal(t, StatusSkip, Status(res.Tests[2]))
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	WriteSummary(&buf, sampleResult())
	out := buf.String()

	assert.Contains(t, out, "route order")
	assert.Contains(t, out, "02 03")
	assert.Contains(t, out, "mismatch, missing_actual, trace")
	assert.Contains(t, out, "1 passed, 1 failed, 1 skipped")
	assert.Contains(t, out, StatusSkip)
}

func TestFindingKinds(t *testing.T) {
	tr := harness.TestResult{Findings: []harness.Finding{
		{Kind: harness.FindingMismatch}, {Kind: harness.FindingDBHook}, {Kind: harness.FindingMismatch},
	}}
	assert.Equal(t, "mismatch x2, db_hook", findingKinds(tr))
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteXLSX(path, sampleResult()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ResultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"Run", "run-1", "Started", "2026-03-01 09:00:00", "Finished", "2026-03-01 09:00:25"}, rows[0])
	assert.Equal(t, []string{"Test", "Description", "Status", "Slot", "Queue", "Format", "Outcome"}, rows[1])
	assert.Equal(t, []string{"1", "route order", "PASS", "01", "OUT", "xml", "match"}, rows[2])
	assert.Equal(t, []string{"2", "split order", "FAIL", "03", "OUT", "plain", "missing_actual"}, rows[4])
	assert.Equal(t, []string{"3", "not selected", "SKIP"}, rows[5])

	findings, err := f.GetRows(FindingsSheet)
	require.NoError(t, err)
	require.Len(t, findings, 4)
	assert.Equal(t, []string{"2", "trace", "", "", "capture trace: exit 1"}, findings[3])
}
