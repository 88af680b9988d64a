package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/msgharness/internal/harness"
)

// createTestStore opens a store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testStart = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

// createTestResult builds a run with one passing, one failing and one
// skipped test.
func createTestResult(runID string) *harness.Result {
	return &harness.Result{
		RunID:    runID,
		Started:  testStart,
		Finished: testStart.Add(3 * time.Second),
		Tests: []harness.TestResult{
			{Index: 1, Description: "route order", Pass: true},
			{Index: 2, Description: "split order", Findings: []harness.Finding{
				{Kind: harness.FindingMismatch, Slot: 2, Queue: "OUT", Message: "slot 02 differs", Diff: "-a\n+b\n"},
				{Kind: harness.FindingDBHook, Message: "pre hook failed"},
			}},
			{Index: 3, Description: "reject order", Skipped: true},
		},
	}
}
