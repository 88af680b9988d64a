package compare

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/unicode/norm"
)

// Canonicalize pretty-prints an XML document with a two-space indent.
//
// Whitespace-only text nodes are dropped, namespace prefixes are kept as
// written and the XML declaration is omitted (content declared in another
// encoding is decoded to UTF-8 first). Text is NFC-normalized. The result
// ends with a newline.
func Canonicalize(doc []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = true
	dec.CharsetReader = charsetReader

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	depth, roots := 0, 0
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("not well-formed: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
				if roots > 1 {
					return nil, fmt.Errorf("not well-formed: more than one root element (<%s>)", qualified(t.Name))
				}
			}
			depth++
			tok = flattenStart(t)
		case xml.EndElement:
			depth--
			tok = xml.EndElement{Name: xml.Name{Local: qualified(t.Name)}}
		case xml.CharData:
			if len(bytes.TrimSpace(t)) == 0 {
				continue
			}
			if depth == 0 {
				return nil, fmt.Errorf("not well-formed: text outside the root element")
			}
			tok = xml.CharData(norm.NFC.Bytes(t))
		case xml.ProcInst:
			if t.Target == "xml" {
				continue
			}
		}

		if err := enc.EncodeToken(xml.CopyToken(tok)); err != nil {
			return nil, fmt.Errorf("not well-formed: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("not well-formed: %w", err)
	}
	if roots == 0 {
		return nil, fmt.Errorf("not well-formed: no root element")
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// flattenStart folds namespace prefixes into local names so the encoder
// writes them back verbatim instead of inventing xmlns attributes.
func flattenStart(t xml.StartElement) xml.StartElement {
	out := xml.StartElement{Name: xml.Name{Local: qualified(t.Name)}}
	for _, a := range t.Attr {
		out.Attr = append(out.Attr, xml.Attr{
			Name:  xml.Name{Local: qualified(a.Name)},
			Value: a.Value,
		})
	}
	return out
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// Ignorer removes lines that open an ignored element from canonical XML.
type Ignorer struct {
	patterns []*regexp.Regexp
}

// NewIgnorer builds an Ignorer for the given element names. Names may be
// given with or without a namespace prefix; unprefixed names also match
// prefixed tags.
func NewIgnorer(elements []string) *Ignorer {
	ig := &Ignorer{}
	for _, name := range elements {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		prefix := `(?:[A-Za-z_][\w.\-]*:)?`
		if strings.Contains(name, ":") {
			prefix = ""
		}
		ig.patterns = append(ig.patterns,
			regexp.MustCompile(`<`+prefix+regexp.QuoteMeta(name)+`(?:[\s/>]|$)`))
	}
	return ig
}

// Empty reports whether nothing is ignored.
func (ig *Ignorer) Empty() bool {
	return ig == nil || len(ig.patterns) == 0
}

// Filter returns canonical with every ignored line removed.
func (ig *Ignorer) Filter(canonical []byte) []byte {
	if ig.Empty() {
		return canonical
	}
	var out bytes.Buffer
	for _, line := range bytes.SplitAfter(canonical, []byte("\n")) {
		if len(line) == 0 || ig.matches(line) {
			continue
		}
		out.Write(line)
	}
	return out.Bytes()
}

func (ig *Ignorer) matches(line []byte) bool {
	for _, p := range ig.patterns {
		if p.Match(line) {
			return true
		}
	}
	return false
}
