package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/msgharness/internal/harness"
	"github.com/roach88/msgharness/internal/trace"
	"github.com/roach88/msgharness/internal/transport"
)

// RootOptions holds the command-line flags.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	Config      string
	Dir         string
	Clean       bool
	IgnoreFiles bool
	Report      string
	History     string
	NoColor     bool

	// Transport, when set, replaces the transport named by the
	// configuration (for testing).
	Transport transport.Transport
	// TraceRunner defaults to trace.ShellRunner.
	TraceRunner trace.Runner
	// Wait defaults to a sleep with a progress spinner.
	Wait harness.WaitFunc
	// IDs and Now override run identity and timing (for testing).
	IDs harness.IDGenerator
	Now func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the msgharness command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "msgharness [flags] [index...]",
		Short: "Run message-broker integration tests",
		Long: `Run the integration tests described by a configuration file against a
message broker component.

Each test puts its input file onto the input queue, waits, fetches every
expected output message and compares it with the stored baseline. Tests not
named on the command line are skipped but keep their result numbering.

Example:
  msgharness
  msgharness --config suite.yaml 3 5
  msgharness --clean
  msgharness --format json --history runs.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitConfigError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "configuration file (default <dir>/msgharness.ini)")
	cmd.Flags().StringVarP(&opts.Dir, "dir", "d", ".", "directory holding the result, data and trace directories")
	cmd.Flags().BoolVar(&opts.Clean, "clean", false, "remove generated artifacts and exit")
	cmd.Flags().BoolVar(&opts.IgnoreFiles, "ignore-files", false, "write .gitignore files for generated artifacts and exit")
	cmd.Flags().StringVar(&opts.Report, "report", "", "write a spreadsheet report to this .xlsx file")
	cmd.Flags().StringVar(&opts.History, "history", "", "record the run in this SQLite database")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "disable console colors")

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
