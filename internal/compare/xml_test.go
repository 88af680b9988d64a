package compare

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize_NamespacedGolden(t *testing.T) {
	doc := []byte(`<order xmlns:ns="urn:example:order"><ns:id>7</ns:id>` +
		`<item qty="2">widget &amp; bolt</item><empty/></order>`)

	got, err := Canonicalize(doc)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "canonical_namespaced", got)
}

func TestCanonicalize_DeclaredCharset(t *testing.T) {
	// "café" with é encoded as ISO-8859-1 0xE9.
	latin1 := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><name>caf`), 0xE9)
	latin1 = append(latin1, []byte(`</name>`)...)

	got, err := Canonicalize(latin1)
	require.NoError(t, err)
	assert.Equal(t, "<name>café</name>\n", string(got))
}

func TestCanonicalize_NFC(t *testing.T) {
	decomposed := []byte("<n>cafe\u0301</n>")
	composed := []byte("<n>caf\u00e9</n>")

	a, err := Canonicalize(decomposed)
	require.NoError(t, err)
	b, err := Canonicalize(composed)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestCanonicalize_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"plain text", "hello world"},
		{"unclosed", "<a><b></b>"},
		{"mismatched", "<a></b>"},
		{"two roots", "<a/><b/>"},
		{"trailing text", "<a/>junk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Canonicalize([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "not well-formed")
		})
	}
}

func TestIgnorer_Filter(t *testing.T) {
	canonical := []byte("<msg>\n  <hdr:timestamp>1</hdr:timestamp>\n  <timestampOffset>2</timestampOffset>\n  <host name=\"a\"/>\n  <body>x</body>\n</msg>\n")

	ig := NewIgnorer([]string{"timestamp", " host ", ""})
	got := string(ig.Filter(canonical))

	assert.NotContains(t, got, "hdr:timestamp")
	assert.NotContains(t, got, "<host")
	assert.Contains(t, got, "<timestampOffset>", "prefix of another element name must not match")
	assert.Contains(t, got, "<body>x</body>")
}

func TestIgnorer_PrefixedName(t *testing.T) {
	canonical := []byte("<m>\n  <a:ts>1</a:ts>\n  <b:ts>2</b:ts>\n</m>\n")

	got := string(NewIgnorer([]string{"a:ts"}).Filter(canonical))
	assert.NotContains(t, got, "<a:ts>")
	assert.Contains(t, got, "<b:ts>")
}

func TestIgnorer_Empty(t *testing.T) {
	var ig *Ignorer
	assert.True(t, ig.Empty())
	assert.True(t, NewIgnorer(nil).Empty())

	in := []byte("<a/>\n")
	assert.Equal(t, in, NewIgnorer(nil).Filter(in))
}
