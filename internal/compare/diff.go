package compare

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

const noNewline = "\\ No newline at end of file\n"

// unifiedDiff renders a unified diff of a against b with three lines of context.
// Binary inputs are reported the way diff(1) does instead of being rendered.
func unifiedDiff(fromName, toName string, a, b []byte) string {
	if bytes.Equal(a, b) {
		return ""
	}
	if isBinary(a) || isBinary(b) {
		return fmt.Sprintf("Binary files %s and %s differ\n", fromName, toName)
	}

	diff := difflib.UnifiedDiff{
		A:        splitLines(a),
		B:        splitLines(b),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("--- %s\n+++ %s\n(diff failed: %v)\n", fromName, toName, err)
	}
	return text
}

// splitLines splits content into newline-terminated lines. A final line
// without a newline gets the "No newline at end of file" marker so that a
// missing trailing newline still shows up in the diff.
func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(content), "\n")
	last := len(lines) - 1
	if lines[last] == "" {
		return lines[:last]
	}
	lines[last] += "\n" + noNewline
	return lines
}

// isBinary treats content with NUL bytes or invalid UTF-8 as opaque.
func isBinary(content []byte) bool {
	return bytes.IndexByte(content, 0) >= 0 || !utf8.Valid(content)
}
