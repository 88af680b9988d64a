package harness

import (
	"time"

	"github.com/roach88/msgharness/internal/compare"
)

// FindingKind classifies a finding.
type FindingKind string

// Finding kinds.
const (
	FindingMismatch          FindingKind = "mismatch"
	FindingMissingActual     FindingKind = "missing_actual"
	FindingMissingExpected   FindingKind = "missing_expected"
	FindingMalformed         FindingKind = "malformed"
	FindingUnexpectedMessage FindingKind = "unexpected_message"
	FindingDBHook            FindingKind = "db_hook"
	FindingTrace             FindingKind = "trace"
)

// findingFor maps a comparison outcome to its finding kind.
func findingFor(k compare.Kind) FindingKind {
	switch k {
	case compare.Mismatch:
		return FindingMismatch
	case compare.MissingActual:
		return FindingMissingActual
	case compare.MissingExpected:
		return FindingMissingExpected
	default:
		return FindingMalformed
	}
}

// Finding is one non-fatal problem found while running a test.
type Finding struct {
	Kind FindingKind `json:"kind"`
	// Slot is the result slot concerned, or 0.
	Slot int `json:"slot,omitempty"`
	// Queue is the queue concerned, if any.
	Queue   string `json:"queue,omitempty"`
	Message string `json:"message"`
	Diff    string `json:"diff,omitempty"`
}

// SlotResult is the comparison of one expected output message.
type SlotResult struct {
	Slot    int            `json:"slot"`
	Queue   string         `json:"queue"`
	Format  compare.Format `json:"format"`
	Outcome string         `json:"outcome"`
	// Parts holds per-part outcomes of header-aware formats.
	Parts map[string]string `json:"parts,omitempty"`
}

// TestResult is the outcome of one test.
type TestResult struct {
	Index       int          `json:"index"`
	Description string       `json:"description"`
	Skipped     bool         `json:"skipped"`
	Pass        bool         `json:"pass"`
	Slots       []SlotResult `json:"slots,omitempty"`
	Findings    []Finding    `json:"findings,omitempty"`
}

// AddFinding records a finding and marks the test failed.
func (t *TestResult) AddFinding(f Finding) {
	t.Findings = append(t.Findings, f)
	t.Pass = false
}

// Result is the outcome of a run.
type Result struct {
	RunID    string       `json:"run_id"`
	Pass     bool         `json:"pass"`
	Tests    []TestResult `json:"tests"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
}

// Counts returns how many tests passed, failed and were skipped.
func (r *Result) Counts() (passed, failed, skipped int) {
	for _, t := range r.Tests {
		switch {
		case t.Skipped:
			skipped++
		case t.Pass:
			passed++
		default:
			failed++
		}
	}
	return passed, failed, skipped
}

// Test returns the result for the test with the given index.
func (r *Result) Test(index int) (TestResult, bool) {
	for _, t := range r.Tests {
		if t.Index == index {
			return t, true
		}
	}
	return TestResult{}, false
}
