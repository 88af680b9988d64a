// Package runlog writes the run log: human-readable progress lines and
// structured diagnostics, mirrored to the console and the log file.
package runlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Log fans every line out to the console and the run-log file. Color is
// applied on the console only.
type Log struct {
	mu      sync.Mutex
	console io.Writer
	file    io.Writer
	closer  io.Closer

	// Logger writes structured records to both destinations.
	Logger *slog.Logger

	pass, fail, warn, add, del *color.Color
}

// Open creates (truncating) the run-log file at path.
func Open(path string, console io.Writer, level slog.Level) (*Log, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log: %w", err)
	}
	l := New(console, f, level)
	l.closer = f
	return l, nil
}

// New builds a Log over the given writers. Either may be nil.
func New(console, file io.Writer, level slog.Level) *Log {
	if console == nil {
		console = io.Discard
	}
	if file == nil {
		file = io.Discard
	}
	l := &Log{
		console: console,
		file:    file,
		pass:    color.New(color.FgGreen, color.Bold),
		fail:    color.New(color.FgRed, color.Bold),
		warn:    color.New(color.FgYellow),
		add:     color.New(color.FgGreen),
		del:     color.New(color.FgRed),
	}
	l.Logger = slog.New(slog.NewTextHandler(&lockedWriter{l: l, w: io.MultiWriter(console, file)},
		&slog.HandlerOptions{Level: level}))
	return l
}

// DisableColor turns off console colors.
func (l *Log) DisableColor() {
	for _, c := range []*color.Color{l.pass, l.fail, l.warn, l.add, l.del} {
		c.DisableColor()
	}
}

// Printf writes a progress line.
func (l *Log) Printf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	l.write(line, line)
}

// Banner announces a test.
func (l *Log) Banner(index int, description string) {
	l.Printf("=== test %02d: %s", index, description)
}

// Skip records a skipped test.
func (l *Log) Skip(index int, description string) {
	l.Printf("--- SKIP test %02d: %s", index, description)
}

// Pass records a passing check.
func (l *Log) Pass(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.write(l.pass.Sprint("PASS")+" "+msg, "PASS "+msg)
}

// Fail records a failing check.
func (l *Log) Fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.write(l.fail.Sprint("FAIL")+" "+msg, "FAIL "+msg)
}

// Warn records a non-fatal problem.
func (l *Log) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.write(l.warn.Sprint("WARN")+" "+msg, "WARN "+msg)
}

// Diff writes a unified diff produced for name.
func (l *Log) Diff(name, text string) {
	var console strings.Builder
	for _, line := range strings.SplitAfter(strings.TrimSuffix(text, "\n"), "\n") {
		line = strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			console.WriteString(line)
		case strings.HasPrefix(line, "+"):
			console.WriteString(l.add.Sprint(line))
		case strings.HasPrefix(line, "-"):
			console.WriteString(l.del.Sprint(line))
		default:
			console.WriteString(line)
		}
		console.WriteByte('\n')
	}
	header := "diff " + name
	l.write(header+"\n"+strings.TrimSuffix(console.String(), "\n"),
		header+"\n"+strings.TrimSuffix(text, "\n"))
}

// Close closes the run-log file.
func (l *Log) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Log) write(console, file string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console, console)
	fmt.Fprintln(l.file, file)
}

// lockedWriter serializes slog output with the progress lines.
type lockedWriter struct {
	l *Log
	w io.Writer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.l.mu.Lock()
	defer w.l.mu.Unlock()
	return w.w.Write(p)
}
