package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/roach88/msgharness/internal/config"
	"github.com/roach88/msgharness/internal/dbhook"
	"github.com/roach88/msgharness/internal/harness"
	"github.com/roach88/msgharness/internal/layout"
	"github.com/roach88/msgharness/internal/report"
	"github.com/roach88/msgharness/internal/runlog"
	"github.com/roach88/msgharness/internal/store"
	"github.com/roach88/msgharness/internal/testcase"
	"github.com/roach88/msgharness/internal/trace"
	"github.com/roach88/msgharness/internal/transport"
)

// maintenanceResult reports the files touched by --clean or --ignore-files.
type maintenanceResult struct {
	Action string   `json:"action"`
	Files  []string `json:"files"`
}

func (m maintenanceResult) String() string {
	verb := "removed"
	if m.Action == "ignore-files" {
		verb = "wrote"
	}
	return fmt.Sprintf("%s: %s %d file(s)", m.Action, verb, len(m.Files))
}

func run(cmd *cobra.Command, opts *RootOptions, args []string) error {
	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	res, err := execute(cmd, opts, args, f)
	if opts.Format != "json" {
		return err
	}
	if err != nil {
		var details any
		if res != nil {
			details = res
		}
		if outErr := f.Error(ErrorCode(GetExitCode(err)), err.Error(), details); outErr != nil {
			return outErr
		}
		return err
	}
	if res != nil {
		return f.Success(res)
	}
	return nil
}

// execute runs the maintenance actions or the suite. It returns the run
// result when a run started, even if it was aborted.
func execute(cmd *cobra.Command, opts *RootOptions, args []string, f *OutputFormatter) (*harness.Result, error) {
	l := layout.New(opts.Dir)
	if opts.Clean || opts.IgnoreFiles {
		return nil, maintain(l, opts, f)
	}

	indices, err := parseIndices(args)
	if err != nil {
		return nil, err
	}

	path := configPath(opts)
	f.VerboseLog("loading configuration from %s", path)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, configExitError(err)
	}
	sel, err := cfg.Suite.Select(indices)
	if err != nil {
		return nil, configExitError(err)
	}
	if err := l.Validate(); err != nil {
		return nil, WrapExitError(ExitMissingDir, "required directory missing", err)
	}

	console := f.Writer
	if opts.Format == "json" {
		console = f.GetErrWriter()
	}
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	log, err := runlog.Open(l.RunLog(), console, level)
	if err != nil {
		return nil, WrapExitError(ExitMissingDir, "cannot write run log", err)
	}
	defer log.Close()
	if opts.NoColor || opts.Format == "json" {
		log.DisableColor()
	}

	ctx, stop := signalContext(cmd.Context(), log.Logger)
	defer stop()

	tp := opts.Transport
	if tp == nil {
		log.Logger.Debug("connecting to broker", "url", cfg.Settings.TransportURL)
		tp, err = transport.Open(cfg.Settings.TransportURL)
		if err != nil {
			return nil, WrapExitError(ExitTransport, "failed to connect to broker", err)
		}
		if _, ok := tp.(*transport.Memory); ok {
			log.Logger.Warn("in-process memory transport selected; nothing consumes the input queue, so expected outputs will be missing",
				"url", cfg.Settings.TransportURL)
		}
	}
	defer tp.Close()

	pre, post := openHooks(ctx, cfg, log.Logger)
	defer closeHooks(pre, post)

	traceRunner := opts.TraceRunner
	if traceRunner == nil {
		traceRunner = trace.ShellRunner
	}
	tracer := trace.New(trace.Settings{
		Profile:        cfg.BrokerProfile,
		Broker:         cfg.Settings.Broker,
		ExecutionGroup: cfg.Settings.ExecutionGroup,
		Component:      cfg.Settings.ComponentName,
		Level:          cfg.Settings.TraceLevel,
	}, traceRunner, log.Logger)

	wait := opts.Wait
	if wait == nil {
		wait = spinnerWait(console, opts.Format == "text")
	}

	runner := harness.New(cfg, l, log, harness.Deps{
		Transport: tp,
		PreDB:     pre,
		PostDB:    post,
		Tracer:    tracer,
		Wait:      wait,
		Now:       opts.Now,
		IDs:       opts.IDs,
	})
	res, runErr := runner.Run(ctx, sel)
	f.RunID = res.RunID

	if opts.Format == "text" {
		report.WriteSummary(f.Writer, res)
	}
	publish(ctx, opts, res, log)

	if runErr != nil {
		return res, fatalExitError(runErr)
	}
	return res, nil
}

func maintain(l layout.Layout, opts *RootOptions, f *OutputFormatter) error {
	if opts.Clean {
		removed, err := l.Clean()
		if err != nil {
			return WrapExitError(ExitMissingDir, "clean failed", err)
		}
		if err := f.Success(maintenanceResult{Action: "clean", Files: nonNil(removed)}); err != nil {
			return err
		}
	}
	if opts.IgnoreFiles {
		written, err := l.WriteIgnoreFiles()
		if err != nil {
			return WrapExitError(ExitMissingDir, "writing ignore files failed", err)
		}
		if err := f.Success(maintenanceResult{Action: "ignore-files", Files: nonNil(written)}); err != nil {
			return err
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// publish writes the optional spreadsheet and history. Failures are
// reported but never change the exit code.
func publish(ctx context.Context, opts *RootOptions, res *harness.Result, log *runlog.Log) {
	if opts.Report != "" {
		if err := report.WriteXLSX(opts.Report, res); err != nil {
			log.Warn("report not written: %v", err)
		} else {
			log.Logger.Info("report written", "path", opts.Report)
		}
	}

	if opts.History != "" {
		if err := recordHistory(context.WithoutCancel(ctx), opts.History, res); err != nil {
			log.Warn("run history not recorded: %v", err)
		} else {
			log.Logger.Info("run recorded", "history", opts.History, "run_id", res.RunID)
		}
	}
}

func recordHistory(ctx context.Context, path string, res *harness.Result) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.RecordRun(ctx, res)
}

func configPath(opts *RootOptions) string {
	if opts.Config != "" {
		return opts.Config
	}
	return filepath.Join(opts.Dir, config.DefaultPath)
}

// parseIndices converts the positional arguments to test indices.
func parseIndices(args []string) ([]int, error) {
	indices := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil || n < 1 {
			return nil, NewExitError(ExitConfigError, fmt.Sprintf("invalid test index %q", a))
		}
		indices = append(indices, n)
	}
	return indices, nil
}

func configExitError(err error) error {
	var notFound *config.NotFoundError
	if errors.As(err, &notFound) {
		return WrapExitError(ExitConfigNotFound, "configuration file not found", err)
	}

	var missing *config.MissingError
	var invalid *config.InvalidError
	var cfgErr *testcase.ConfigurationError
	switch {
	case errors.As(err, &missing):
		return WrapExitError(ExitConfigError, "missing configuration value", err)
	case errors.As(err, &invalid), errors.As(err, &cfgErr):
		return WrapExitError(ExitConfigError, "invalid configuration", err)
	default:
		return WrapExitError(ExitConfigError, "cannot load configuration", err)
	}
}

func fatalExitError(err error) error {
	var fatal *harness.FatalError
	if errors.As(err, &fatal) {
		switch fatal.Reason {
		case harness.ReasonMissingInput:
			return WrapExitError(ExitConfigError, "test input missing", err)
		case harness.ReasonTransport:
			return WrapExitError(ExitTransport, "broker transport failed", err)
		}
	}
	return WrapExitError(ExitConfigError, "run aborted", err)
}

// openHooks connects the databases used by the suite's hooks. A database
// that cannot be reached is logged and left nil, so its hooks are reported
// as findings.
func openHooks(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pre, post dbhook.Session) {
	usesPre, usesPost := false, false
	for _, idx := range cfg.Suite.Indices() {
		tc, _ := cfg.Suite.Get(idx)
		usesPre = usesPre || tc.DBPre != ""
		usesPost = usesPost || tc.DBPost != ""
	}

	s := cfg.Settings
	if usesPre && s.DBPreDSN != "" {
		pre = openSession(ctx, s.DBDriver, s.DBPreDSN, "pre", logger)
	}
	if usesPost && s.DBPostDSN != "" {
		if s.DBPostDSN == s.DBPreDSN && pre != nil {
			post = pre
		} else {
			post = openSession(ctx, s.DBDriver, s.DBPostDSN, "post", logger)
		}
	}
	return pre, post
}

func openSession(ctx context.Context, driver, dsn, name string, logger *slog.Logger) dbhook.Session {
	s, err := dbhook.Open(ctx, driver, dsn)
	if err != nil {
		logger.Warn("hook database unavailable", "hook", name, "driver", driver, "error", err)
		return nil
	}
	return s
}

func closeHooks(pre, post dbhook.Session) {
	if pre != nil {
		pre.Close()
	}
	if post != nil && post != pre {
		post.Close()
	}
}

// spinnerWait shows a spinner on terminals while waiting for the component
// to produce its output.
func spinnerWait(w io.Writer, enabled bool) harness.WaitFunc {
	return func(ctx context.Context, d time.Duration) error {
		if !enabled {
			return harness.Sleep(ctx, d)
		}
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
		s.Suffix = fmt.Sprintf(" Waiting %s for output...", d)
		s.Start()
		defer s.Stop()
		return harness.Sleep(ctx, d)
	}
}

// signalContext cancels the returned context on the first SIGINT or SIGTERM.
// A second signal gets the default behavior and kills the process.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, func()) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("received signal, stopping after the current test", "signal", sig)
			signal.Stop(sigChan)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
