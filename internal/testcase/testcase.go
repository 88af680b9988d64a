package testcase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/msgharness/internal/compare"
)

// TestCase is one configured test.
type TestCase struct {
	// Index is the 1-based position of the test.
	Index int

	// Description is shown in test banners and reports. Required.
	Description string

	// InputQueue overrides the global input queue when set.
	InputQueue string

	// OutputQueues lists the queues to fetch from, in order. A queue listed
	// twice means two messages are expected from it.
	OutputQueues []string

	// EmptyQueues lists queues that must hold no message after execution.
	EmptyQueues []string

	// Formats holds the comparison format per output entry. Missing entries
	// default to plain.
	Formats []compare.Format

	// DBPre and DBPost are SQL hooks run before and after the test. A value
	// starting with "@" names a script file.
	DBPre  string
	DBPost string
}

// FormatAt returns the comparison format of the output entry at pos.
func (tc TestCase) FormatAt(pos int) compare.Format {
	if pos < 0 || pos >= len(tc.Formats) || tc.Formats[pos] == "" {
		return compare.FormatPlain
	}
	return tc.Formats[pos]
}

// QueueFor resolves the input queue against the global default.
func (tc TestCase) QueueFor(global string) string {
	if tc.InputQueue != "" {
		return tc.InputQueue
	}
	return global
}

// ConfigurationError reports an invalid test definition.
type ConfigurationError struct {
	Index  int
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Index == 0 {
		return "invalid test configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid test configuration: test %d: %s", e.Index, e.Reason)
}

// Suite is the validated, ordered set of test cases.
type Suite struct {
	tests []TestCase // tests[i].Index == i+1
	first []int      // first slot per test
}

// NewSuite validates the test cases keyed by index and builds a Suite.
func NewSuite(tests map[int]TestCase) (*Suite, error) {
	keys := make([]int, 0, len(tests))
	for k := range tests {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	s := &Suite{}
	slot := 1
	for i, k := range keys {
		if k != i+1 {
			if k < 1 {
				return nil, &ConfigurationError{Reason: fmt.Sprintf("test index %d must be 1 or greater", k)}
			}
			return nil, &ConfigurationError{Index: i + 1, Reason: "missing; test indices must be contiguous from 1"}
		}
		tc := tests[k]
		tc.Index = k
		if err := validate(tc); err != nil {
			return nil, err
		}
		s.tests = append(s.tests, tc)
		s.first = append(s.first, slot)
		slot += len(tc.OutputQueues)
	}
	return s, nil
}

func validate(tc TestCase) error {
	if strings.TrimSpace(tc.Description) == "" {
		return &ConfigurationError{Index: tc.Index, Reason: "description is required"}
	}
	if len(tc.Formats) > len(tc.OutputQueues) {
		return &ConfigurationError{Index: tc.Index, Reason: fmt.Sprintf(
			"%d formats given for %d output queues", len(tc.Formats), len(tc.OutputQueues))}
	}
	for _, f := range tc.Formats {
		if _, err := compare.ParseFormat(string(f)); err != nil {
			return &ConfigurationError{Index: tc.Index, Reason: err.Error()}
		}
	}
	for _, q := range tc.OutputQueues {
		if strings.TrimSpace(q) == "" {
			return &ConfigurationError{Index: tc.Index, Reason: "blank output queue name"}
		}
	}
	return nil
}

// Len returns the number of tests.
func (s *Suite) Len() int { return len(s.tests) }

// Get returns the test with the given index.
func (s *Suite) Get(index int) (TestCase, bool) {
	if index < 1 || index > len(s.tests) {
		return TestCase{}, false
	}
	return s.tests[index-1], true
}

// Indices returns every index in ascending order.
func (s *Suite) Indices() []int {
	out := make([]int, len(s.tests))
	for i := range s.tests {
		out[i] = i + 1
	}
	return out
}

// SlotCount returns how many result slots the test consumes.
func (s *Suite) SlotCount(index int) int {
	tc, ok := s.Get(index)
	if !ok {
		return 0
	}
	return len(tc.OutputQueues)
}

// FirstSlot returns the slot number of the test's first output entry.
// It is the slot the next test would start at when the test has no outputs.
func (s *Suite) FirstSlot(index int) int {
	if index < 1 || index > len(s.tests) {
		return 0
	}
	return s.first[index-1]
}

// TotalSlots returns the number of slots across the suite.
func (s *Suite) TotalSlots() int {
	if len(s.tests) == 0 {
		return 0
	}
	n := len(s.tests)
	return s.first[n-1] + len(s.tests[n-1].OutputQueues) - 1
}

// Selection is the set of tests chosen to run.
type Selection struct {
	all bool
	set map[int]bool
}

// Select resolves an explicit subset of indices. An empty subset selects
// every test. Unknown indices are a configuration error.
func (s *Suite) Select(indices []int) (Selection, error) {
	if len(indices) == 0 {
		return Selection{all: true}, nil
	}
	sel := Selection{set: make(map[int]bool, len(indices))}
	for _, i := range indices {
		if _, ok := s.Get(i); !ok {
			return Selection{}, &ConfigurationError{Reason: fmt.Sprintf(
				"selected test %d does not exist (suite has %d tests)", i, s.Len())}
		}
		sel.set[i] = true
	}
	return sel, nil
}

// Contains reports whether the test with the given index runs.
func (sel Selection) Contains(index int) bool {
	return sel.all || sel.set[index]
}

// All reports whether every test is selected.
func (sel Selection) All() bool { return sel.all }
