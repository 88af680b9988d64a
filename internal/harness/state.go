package harness

import (
	"github.com/roach88/msgharness/internal/testcase"
)

// Phase is a step of the per-test state machine.
type Phase int

// Phases in execution order. Skipped is the alternative to the first four.
const (
	PhaseSetup Phase = iota
	PhaseExecute
	PhaseAnalyze
	PhaseCleanup
	PhaseDone
	PhaseSkipped
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseExecute:
		return "execute"
	case PhaseAnalyze:
		return "analyze"
	case PhaseCleanup:
		return "cleanup"
	case PhaseDone:
		return "done"
	case PhaseSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// runState is owned by the run loop. The slot counter starts at 1 and
// advances once per output entry of every test, run or skipped.
type runState struct {
	slot  int
	test  *TestResult
	phase Phase
}

func newRunState() *runState {
	return &runState{slot: 1}
}

// begin starts a new test in the Setup phase.
func (s *runState) begin(tc testcase.TestCase) *TestResult {
	s.test = &TestResult{Index: tc.Index, Description: tc.Description, Pass: true}
	s.phase = PhaseSetup
	return s.test
}

// nextSlot consumes and returns the next result slot.
func (s *runState) nextSlot() int {
	n := s.slot
	s.slot++
	return n
}

// skip consumes the slots of a test that does not run.
func (s *runState) skip(tc testcase.TestCase) TestResult {
	s.slot += len(tc.OutputQueues)
	s.phase = PhaseSkipped
	return TestResult{Index: tc.Index, Description: tc.Description, Skipped: true}
}
