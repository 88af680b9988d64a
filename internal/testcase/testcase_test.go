package testcase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/msgharness/internal/compare"
)

func suiteOf(t *testing.T, outputs ...int) *Suite {
	t.Helper()
	tests := map[int]TestCase{}
	for i, n := range outputs {
		tc := TestCase{Description: "test"}
		for j := 0; j < n; j++ {
			tc.OutputQueues = append(tc.OutputQueues, "OUT")
		}
		tests[i+1] = tc
	}
	s, err := NewSuite(tests)
	require.NoError(t, err)
	return s
}

func TestNewSuite_Contiguous(t *testing.T) {
	s := suiteOf(t, 1, 2, 0, 3)

	assert.Equal(t, 4, s.Len())
	assert.Equal(t, []int{1, 2, 3, 4}, s.Indices())

	tc, ok := s.Get(2)
	require.True(t, ok)
	assert.Equal(t, 2, tc.Index)

	_, ok = s.Get(5)
	assert.False(t, ok)
}

func TestNewSuite_Gap(t *testing.T) {
	_, err := NewSuite(map[int]TestCase{
		1: {Description: "one"},
		3: {Description: "three"},
	})
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, 2, cfgErr.Index)
}

func TestNewSuite_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		tests map[int]TestCase
	}{
		{"blank description", map[int]TestCase{1: {Description: "  "}}},
		{"zero index", map[int]TestCase{0: {Description: "x"}, 1: {Description: "y"}}},
		{"unknown format", map[int]TestCase{1: {
			Description: "x", OutputQueues: []string{"Q"}, Formats: []compare.Format{"json"},
		}}},
		{"more formats than outputs", map[int]TestCase{1: {
			Description: "x", OutputQueues: []string{"Q"},
			Formats: []compare.Format{compare.FormatXML, compare.FormatXML},
		}}},
		{"blank output queue", map[int]TestCase{1: {Description: "x", OutputQueues: []string{""}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSuite(tt.tests)
			var cfgErr *ConfigurationError
			assert.True(t, errors.As(err, &cfgErr), "got %v", err)
		})
	}
}

func TestNewSuite_Empty(t *testing.T) {
	s, err := NewSuite(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Indices())
	assert.Equal(t, 0, s.TotalSlots())
}

func TestSlots(t *testing.T) {
	s := suiteOf(t, 1, 2, 0, 3)

	assert.Equal(t, 1, s.FirstSlot(1))
	assert.Equal(t, 2, s.FirstSlot(2))
	assert.Equal(t, 4, s.FirstSlot(3))
	assert.Equal(t, 4, s.FirstSlot(4))
	assert.Equal(t, 6, s.TotalSlots())

	assert.Equal(t, 2, s.SlotCount(2))
	assert.Equal(t, 0, s.SlotCount(3))
	assert.Equal(t, 0, s.SlotCount(99))
}

func TestSelect(t *testing.T) {
	s := suiteOf(t, 1, 1, 1)

	all, err := s.Select(nil)
	require.NoError(t, err)
	assert.True(t, all.All())
	for _, i := range s.Indices() {
		assert.True(t, all.Contains(i))
	}

	some, err := s.Select([]int{3, 1})
	require.NoError(t, err)
	assert.True(t, some.Contains(1))
	assert.False(t, some.Contains(2))
	assert.True(t, some.Contains(3))

	_, err = s.Select([]int{4})
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestFormatAt(t *testing.T) {
	tc := TestCase{
		OutputQueues: []string{"A", "B", "C"},
		Formats:      []compare.Format{compare.FormatXML, ""},
	}
	assert.Equal(t, compare.FormatXML, tc.FormatAt(0))
	assert.Equal(t, compare.FormatPlain, tc.FormatAt(1))
	assert.Equal(t, compare.FormatPlain, tc.FormatAt(2))
}

func TestQueueFor(t *testing.T) {
	assert.Equal(t, "GLOBAL.IN", TestCase{}.QueueFor("GLOBAL.IN"))
	assert.Equal(t, "LOCAL.IN", TestCase{InputQueue: "LOCAL.IN"}.QueueFor("GLOBAL.IN"))
}
