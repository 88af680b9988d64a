package harness

import "fmt"

// FatalReason says why a run was aborted.
type FatalReason string

// Fatal reasons.
const (
	ReasonMissingInput FatalReason = "missing_input"
	ReasonTransport    FatalReason = "transport"
)

// FatalError aborts the run.
type FatalError struct {
	Reason FatalReason
	// Test is the index of the test that was running.
	Test int
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("test %02d: %s: %v", e.Test, e.Reason, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
