package compare

// Kind classifies a comparison result.
type Kind int

const (
	// Match means expected and actual are equal under the format.
	Match Kind = iota
	// Mismatch means they differ; Outcome.Diff holds the unified diff.
	Mismatch
	// MissingActual means no message was retrieved for the slot.
	MissingActual
	// MissingExpected means no expected-result file exists for the slot.
	MissingExpected
	// Malformed means a side declared as XML could not be canonicalized.
	Malformed
)

func (k Kind) String() string {
	switch k {
	case Match:
		return "match"
	case Mismatch:
		return "mismatch"
	case MissingActual:
		return "missing_actual"
	case MissingExpected:
		return "missing_expected"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Part is the result of comparing one region of a header-aware message.
type Part struct {
	Name   string // "usr" or "data"
	Format Format
	Kind   Kind
	Diff   string
	Err    error
}

// Artifact is a derived byproduct of a comparison (canonical XML, split
// header regions). Suffix is appended to the result file names.
type Artifact struct {
	Suffix   string
	Expected []byte
	Actual   []byte
}

// Outcome is the result of comparing one result slot.
type Outcome struct {
	Kind    Kind
	Format  Format
	Diff    string
	Err     error
	Parts   []Part
	Derived []Artifact
}

// OK reports whether the outcome is a match.
func (o Outcome) OK() bool {
	return o.Kind == Match
}

// Part returns the named sub-result of a header-aware comparison.
func (o Outcome) Part(name string) (Part, bool) {
	for _, p := range o.Parts {
		if p.Name == name {
			return p, true
		}
	}
	return Part{}, false
}

// worst folds part kinds into a single message-level kind.
// Malformed outranks Mismatch, which outranks Match.
func worst(kinds ...Kind) Kind {
	out := Match
	for _, k := range kinds {
		switch {
		case k == Malformed:
			return Malformed
		case k == Mismatch:
			out = Mismatch
		}
	}
	return out
}
