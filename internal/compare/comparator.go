package compare

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// DiffSink receives every diff a comparison produces.
type DiffSink interface {
	Diff(name, text string)
}

// Options configure a Comparator.
type Options struct {
	// IgnoreElements lists XML element names whose opening lines are dropped
	// before diffing.
	IgnoreElements []string
	// Markers delimit the user-properties block for header-aware formats.
	Markers Markers
	// Sink receives diffs; nil discards them.
	Sink DiffSink
}

// Comparator compares expected and actual results.
type Comparator struct {
	ignore  *Ignorer
	markers Markers
	sink    DiffSink
}

// New creates a Comparator.
func New(opts Options) *Comparator {
	return &Comparator{
		ignore:  NewIgnorer(opts.IgnoreElements),
		markers: opts.Markers.orDefault(),
		sink:    opts.Sink,
	}
}

// Labels name the two sides in diff headers.
type Labels struct {
	Expected string
	Actual   string
}

// CompareFile compares actual against the expected-result file at path.
// A missing file yields MissingExpected.
func (c *Comparator) CompareFile(path string, actual []byte, f Format, labels Labels) Outcome {
	expected, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Outcome{Kind: MissingExpected, Format: f, Err: fmt.Errorf("expected result %s not found", path)}
	}
	if err != nil {
		return Outcome{Kind: MissingExpected, Format: f, Err: fmt.Errorf("read expected result: %w", err)}
	}
	return c.Compare(expected, actual, f, labels)
}

// Compare compares expected and actual under format f.
func (c *Comparator) Compare(expected, actual []byte, f Format, labels Labels) Outcome {
	var out Outcome
	switch {
	case f.HeaderAware():
		out = c.compareHeader(expected, actual, f, labels)
	case f == FormatXML:
		out = c.compareXML(expected, actual, labels, ".xml")
	default:
		out = c.comparePlain(expected, actual, labels)
	}
	out.Format = f
	return out
}

func (c *Comparator) comparePlain(expected, actual []byte, labels Labels) Outcome {
	diff := unifiedDiff(labels.Expected, labels.Actual, expected, actual)
	if diff == "" {
		return Outcome{Kind: Match}
	}
	c.report(labels.Actual, diff)
	return Outcome{Kind: Mismatch, Diff: diff}
}

func (c *Comparator) compareXML(expected, actual []byte, labels Labels, suffix string) Outcome {
	canonExpected, err := Canonicalize(expected)
	if err != nil {
		return Outcome{Kind: Malformed, Err: fmt.Errorf("%s: %w", labels.Expected, err)}
	}
	canonActual, err := Canonicalize(actual)
	if err != nil {
		return Outcome{Kind: Malformed, Err: fmt.Errorf("%s: %w", labels.Actual, err)}
	}

	out := Outcome{
		Kind:    Match,
		Derived: []Artifact{{Suffix: suffix, Expected: canonExpected, Actual: canonActual}},
	}
	diff := unifiedDiff(labels.Expected+suffix, labels.Actual+suffix,
		c.ignore.Filter(canonExpected), c.ignore.Filter(canonActual))
	if diff != "" {
		c.report(labels.Actual+suffix, diff)
		out.Kind = Mismatch
		out.Diff = diff
	}
	return out
}

func (c *Comparator) compareHeader(expected, actual []byte, f Format, labels Labels) Outcome {
	exp := SplitHeader(expected, c.markers)
	act := SplitHeader(actual, c.markers)
	usrFormat, dataFormat := f.parts()

	usr := c.comparePart("usr", usrFormat, exp.Usr, act.Usr, labels)
	data := c.comparePart("data", dataFormat, exp.Data(), act.Data(), labels)

	out := Outcome{
		Kind:  worst(usr.Kind, data.Kind),
		Parts: []Part{usr.Part, data.Part},
		Diff:  usr.Diff + data.Diff,
	}
	out.Err = errors.Join(usr.Err, data.Err)
	out.Derived = append(out.Derived, usr.derived, data.derived)
	return out
}

type partResult struct {
	Part
	derived Artifact
}

func (c *Comparator) comparePart(name string, f Format, expected, actual []byte, labels Labels) partResult {
	suffix := "." + name
	res := partResult{
		Part:    Part{Name: name, Format: f},
		derived: Artifact{Suffix: suffix, Expected: expected, Actual: actual},
	}

	if f == FormatXML && (len(expected) > 0 || len(actual) > 0) {
		if len(expected) == 0 || len(actual) == 0 {
			res.Kind, res.Diff = c.plainPart(expected, actual, labels, suffix)
			return res
		}
		o := c.compareXML(expected, actual, labels, suffix)
		res.Kind, res.Diff, res.Err = o.Kind, o.Diff, o.Err
		if len(o.Derived) == 1 {
			res.derived = o.Derived[0]
		}
		return res
	}

	res.Kind, res.Diff = c.plainPart(expected, actual, labels, suffix)
	return res
}

func (c *Comparator) plainPart(expected, actual []byte, labels Labels, suffix string) (Kind, string) {
	diff := unifiedDiff(labels.Expected+suffix, labels.Actual+suffix, expected, actual)
	if diff == "" {
		return Match, ""
	}
	c.report(labels.Actual+suffix, diff)
	return Mismatch, diff
}

func (c *Comparator) report(name, diff string) {
	if c.sink != nil {
		c.sink.Diff(name, diff)
	}
}
