// Package layout names the working directories and files of a run.
package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Directory names under the root.
const (
	ActualDir   = "actual_results"
	ExpectedDir = "expected_results"
	InputDir    = "test_data"
	TraceDir    = "trace"

	// RunLogName is the run log file, truncated at the start of each run.
	RunLogName = "msgharness.log"
)

// Dirs lists the directories that must exist before a run.
var Dirs = []string{ActualDir, ExpectedDir, InputDir, TraceDir}

// MissingDirError reports a required directory that does not exist.
type MissingDirError struct {
	Path string
}

func (e *MissingDirError) Error() string {
	return fmt.Sprintf("required directory %s does not exist", e.Path)
}

// Layout resolves paths under a root directory.
type Layout struct {
	Root string
}

// New returns the Layout rooted at root; an empty root means the current
// directory.
func New(root string) Layout {
	if root == "" {
		root = "."
	}
	return Layout{Root: root}
}

// Validate checks that every required directory exists.
func (l Layout) Validate() error {
	for _, d := range Dirs {
		path := filepath.Join(l.Root, d)
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
			return &MissingDirError{Path: path}
		}
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}
	return nil
}

// Name formats a slot or test index as a two-digit, zero-padded file name.
func Name(n int) string {
	return fmt.Sprintf("%02d", n)
}

// Input is the input message of the test with the given index.
func (l Layout) Input(index int) string {
	return filepath.Join(l.Root, InputDir, Name(index))
}

// Actual is the actual result of a slot. A non-empty suffix names a derived
// byproduct (".xml", ".usr", ".data").
func (l Layout) Actual(slot int, suffix string) string {
	return filepath.Join(l.Root, ActualDir, Name(slot)+suffix)
}

// Expected is the expected result of a slot, optionally with a derived
// suffix.
func (l Layout) Expected(slot int, suffix string) string {
	return filepath.Join(l.Root, ExpectedDir, Name(slot)+suffix)
}

// Stray is where a message found on a queue that must be empty is kept.
// pos is the 1-based position of the queue in the test's empty-queue list.
func (l Layout) Stray(index, pos int, queue string) string {
	return filepath.Join(l.Root, ActualDir, "T"+Name(index)+"_"+Name(pos)+"_"+sanitize(queue)+".unexpected")
}

// Trace is the base path (without extension) of a test's trace capture.
func (l Layout) Trace(index int) string {
	return filepath.Join(l.Root, TraceDir, Name(index))
}

// RunLog is the run log path.
func (l Layout) RunLog() string {
	return filepath.Join(l.Root, RunLogName)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitize(queue string) string {
	return unsafeChars.ReplaceAllString(queue, "_")
}

// derivedExpected matches byproducts written next to expected baselines.
var derivedExpected = regexp.MustCompile(`^[0-9]{2,}\.(xml|usr|data)$`)

// Clean removes generated artifacts: everything in the actual-results and
// trace directories except .gitignore, derived byproducts in the
// expected-results directory and the run log. Baselines are never removed.
// It returns the removed paths.
func (l Layout) Clean() ([]string, error) {
	var removed []string

	for _, d := range []string{ActualDir, TraceDir} {
		dir := filepath.Join(l.Root, d)
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("failed to read %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.Name() == ".gitignore" {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if err := os.RemoveAll(path); err != nil {
				return removed, fmt.Errorf("failed to remove %s: %w", path, err)
			}
			removed = append(removed, path)
		}
	}

	dir := filepath.Join(l.Root, ExpectedDir)
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return removed, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !derivedExpected.MatchString(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", path, err)
		}
		removed = append(removed, path)
	}

	if err := os.Remove(l.RunLog()); err == nil {
		removed = append(removed, l.RunLog())
	} else if !errors.Is(err, fs.ErrNotExist) {
		return removed, fmt.Errorf("failed to remove run log: %w", err)
	}
	return removed, nil
}

var ignoreFiles = map[string]string{
	ActualDir:   "*\n!.gitignore\n",
	TraceDir:    "*\n!.gitignore\n",
	ExpectedDir: "*.xml\n*.usr\n*.data\n",
}

// WriteIgnoreFiles writes .gitignore files that keep generated artifacts out
// of version control, and adds the run log to the root .gitignore. It
// returns the files written.
func (l Layout) WriteIgnoreFiles() ([]string, error) {
	var written []string
	for _, d := range []string{ActualDir, ExpectedDir, TraceDir} {
		dir := filepath.Join(l.Root, d)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return written, fmt.Errorf("failed to create %s: %w", dir, err)
		}
		path := filepath.Join(dir, ".gitignore")
		if err := os.WriteFile(path, []byte(ignoreFiles[d]), 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}

	root := filepath.Join(l.Root, ".gitignore")
	existing, err := os.ReadFile(root)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return written, fmt.Errorf("failed to read %s: %w", root, err)
	}
	for _, line := range strings.Split(string(existing), "\n") {
		if strings.TrimSpace(line) == RunLogName {
			return written, nil
		}
	}
	content := string(existing)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += RunLogName + "\n"
	if err := os.WriteFile(root, []byte(content), 0644); err != nil {
		return written, fmt.Errorf("failed to write %s: %w", root, err)
	}
	return append(written, root), nil
}
