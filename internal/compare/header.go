package compare

import "bytes"

// Markers delimit the user-properties block inside the header line.
type Markers struct {
	Start string
	End   string
}

// DefaultMarkers delimit the usr folder of a serialized message header.
var DefaultMarkers = Markers{Start: "<usr>", End: "</usr>"}

func (m Markers) orDefault() Markers {
	if m.Start == "" || m.End == "" {
		return DefaultMarkers
	}
	return m
}

// Envelope is a message split into its header regions and body.
type Envelope struct {
	// Usr is the user-properties block including its markers, or nil when
	// the header line carries none.
	Usr []byte
	// HeaderTail is what follows the block on the header line.
	HeaderTail []byte
	// Body is everything after the header line; nil for single-line messages.
	Body []byte
}

// Data is the region compared as the "data" part: the header tail, then the
// body on the following lines.
func (e Envelope) Data() []byte {
	if e.Body == nil {
		return e.HeaderTail
	}
	out := make([]byte, 0, len(e.HeaderTail)+1+len(e.Body))
	out = append(out, e.HeaderTail...)
	out = append(out, '\n')
	return append(out, e.Body...)
}

// SplitHeader splits a message whose first line embeds a user-properties
// block.
//
// Only the first line is searched. The block runs from the first start marker
// to the first end marker after it. Content before the block is not part of
// either region. When the end marker occurs several times on the line the
// tail is the shortest residual following any occurrence, which skips past
// nested closings to the outermost one. A line without a complete block is
// all tail.
func SplitHeader(msg []byte, m Markers) Envelope {
	m = m.orDefault()

	line, body, hasBody := bytes.Cut(msg, []byte("\n"))
	env := Envelope{HeaderTail: line}
	if hasBody {
		env.Body = body
	}

	start := bytes.Index(line, []byte(m.Start))
	if start < 0 {
		return env
	}
	end := bytes.Index(line[start+len(m.Start):], []byte(m.End))
	if end < 0 {
		return env
	}
	blockEnd := start + len(m.Start) + end + len(m.End)

	env.Usr = line[start:blockEnd]
	env.HeaderTail = shortestResidual(line, blockEnd-len(m.End), []byte(m.End))
	return env
}

// shortestResidual returns the shortest suffix of line that follows an
// occurrence of marker at or after from.
func shortestResidual(line []byte, from int, marker []byte) []byte {
	var best []byte
	found := false
	for pos := from; pos <= len(line)-len(marker); {
		i := bytes.Index(line[pos:], marker)
		if i < 0 {
			break
		}
		residual := line[pos+i+len(marker):]
		if !found || len(residual) < len(best) {
			best, found = residual, true
		}
		pos += i + 1
	}
	return best
}
