// Package trace switches broker user tracing on and off around a test and
// captures the trace log.
package trace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/alessio/shellescape"
)

// Levels accepted for Settings.Level.
const (
	LevelNone   = "none"
	LevelNormal = "normal"
	LevelDebug  = "debug"
)

// Tracer controls broker tracing for one test.
type Tracer interface {
	// Enable starts tracing, resetting any previous trace log.
	Enable(ctx context.Context) error
	// Capture stops tracing and writes the trace log to dest+".xml" and its
	// formatted rendering to dest+".txt".
	Capture(ctx context.Context, dest string) error
}

// Settings identify what to trace.
type Settings struct {
	// Profile is sourced before every command.
	Profile        string
	Broker         string
	ExecutionGroup string
	Component      string
	Level          string
}

// Runner executes a shell script and returns its combined output.
type Runner func(ctx context.Context, script string) ([]byte, error)

// ShellRunner runs script with sh -c.
func ShellRunner(ctx context.Context, script string) ([]byte, error) {
	return exec.CommandContext(ctx, "sh", "-c", script).CombinedOutput()
}

// New returns the Tracer for s. Level none yields a Tracer that does
// nothing. A nil run uses ShellRunner; a nil logger discards.
func New(s Settings, run Runner, logger *slog.Logger) Tracer {
	if s.Level == "" || s.Level == LevelNone {
		return Nop{}
	}
	if run == nil {
		run = ShellRunner
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Command{settings: s, run: run, logger: logger}
}

// Nop is a Tracer that does nothing.
type Nop struct{}

func (Nop) Enable(context.Context) error          { return nil }
func (Nop) Capture(context.Context, string) error { return nil }

// Command drives tracing through the broker's command-line tools.
type Command struct {
	settings Settings
	run      Runner
	logger   *slog.Logger
}

// Enable implements Tracer.
func (c *Command) Enable(ctx context.Context) error {
	var b commandBuilder
	b.add("mqsichangetrace", c.settings.Broker, "-u", "-e", c.settings.ExecutionGroup)
	if c.settings.Component != "" {
		b.add("-f", c.settings.Component)
	}
	b.add("-l", c.settings.Level, "-r")
	return c.exec(ctx, b)
}

// Capture implements Tracer. All three steps are attempted; their errors are
// joined.
func (c *Command) Capture(ctx context.Context, dest string) error {
	xmlPath, txtPath := dest+".xml", dest+".txt"

	var off, read, format commandBuilder
	off.add("mqsichangetrace", c.settings.Broker, "-u", "-e", c.settings.ExecutionGroup, "-l", LevelNone)
	read.add("mqsireadlog", c.settings.Broker, "-u", "-e", c.settings.ExecutionGroup, "-o", xmlPath)
	format.add("mqsiformatlog", "-i", xmlPath, "-o", txtPath)

	errOff := c.exec(ctx, off)
	errRead := c.exec(ctx, read)
	var errFormat error
	if errRead == nil {
		errFormat = c.exec(ctx, format)
	}
	return errors.Join(errOff, errRead, errFormat)
}

func (c *Command) exec(ctx context.Context, b commandBuilder) error {
	script := b.String()
	if c.settings.Profile != "" {
		var p commandBuilder
		p.add(c.settings.Profile)
		script = ". " + p.String() + " && " + script
	}
	c.logger.Debug("trace command", "cmd", script)

	out, err := c.run(ctx, script)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("%s: %w", b[0], err)
		}
		return fmt.Errorf("%s: %w: %s", b[0], err, msg)
	}
	return nil
}

// commandBuilder accumulates shell-quoted arguments.
type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}
