package testutil

import "fmt"

// FixedIDGenerator returns predictable run IDs: the prefix followed by a
// counter ("run-1", "run-2", ...).
type FixedIDGenerator struct {
	prefix string
	n      int
}

// NewFixedIDGenerator creates a generator. An empty prefix means "run".
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	if prefix == "" {
		prefix = "run"
	}
	return &FixedIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *FixedIDGenerator) Generate() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
