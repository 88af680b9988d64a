package harness

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/msgharness/internal/compare"
	"github.com/roach88/msgharness/internal/config"
	"github.com/roach88/msgharness/internal/dbhook"
	"github.com/roach88/msgharness/internal/layout"
	"github.com/roach88/msgharness/internal/runlog"
	"github.com/roach88/msgharness/internal/testcase"
	"github.com/roach88/msgharness/internal/trace"
	"github.com/roach88/msgharness/internal/transport"
)

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default WaitFunc. The Runner never passes it a cancelable
// context.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Deps are the collaborators a Runner drives.
type Deps struct {
	Transport transport.Transport

	// PreDB and PostDB run the DB hooks; nil when no DSN is configured.
	PreDB  dbhook.Session
	PostDB dbhook.Session

	// Tracer defaults to trace.Nop.
	Tracer trace.Tracer

	// Wait defaults to Sleep.
	Wait WaitFunc

	// Now defaults to time.Now.
	Now func() time.Time

	// IDs defaults to UUIDv7Generator.
	IDs IDGenerator
}

// Runner executes a suite.
type Runner struct {
	cfg    *config.Config
	layout layout.Layout
	log    *runlog.Log
	logger *slog.Logger
	deps   Deps
	cmp    *compare.Comparator
}

// New creates a Runner.
func New(cfg *config.Config, l layout.Layout, log *runlog.Log, deps Deps) *Runner {
	if deps.Tracer == nil {
		deps.Tracer = trace.Nop{}
	}
	if deps.Wait == nil {
		deps.Wait = Sleep
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IDs == nil {
		deps.IDs = UUIDv7Generator{}
	}
	return &Runner{
		cfg:    cfg,
		layout: l,
		log:    log,
		logger: log.Logger,
		deps:   deps,
		cmp: compare.New(compare.Options{
			IgnoreElements: cfg.Settings.IgnoreXMLElements,
			Markers:        cfg.Settings.Markers,
			Sink:           log,
		}),
	}
}

// Run executes the selected tests in ascending index order. Tests outside
// the selection are skipped. Canceling ctx stops the run before the next
// test starts. The returned Result is complete up to the
// point of failure when err is a *FatalError.
func (r *Runner) Run(ctx context.Context, sel testcase.Selection) (*Result, error) {
	res := &Result{
		RunID:   r.deps.IDs.Generate(),
		Started: r.deps.Now(),
		Tests:   []TestResult{},
	}
	r.logger.Info("run started", "run_id", res.RunID, "component", r.cfg.Settings.ComponentName,
		"broker", r.cfg.Settings.Broker, "tests", r.cfg.Suite.Len())

	state := newRunState()
	var runErr error
	for _, idx := range r.cfg.Suite.Indices() {
		tc, _ := r.cfg.Suite.Get(idx)

		if !sel.Contains(idx) {
			r.log.Skip(idx, tc.Description)
			res.Tests = append(res.Tests, state.skip(tc))
			continue
		}

		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("run interrupted before test %02d: %w", idx, err)
			break
		}
		// A started test runs to completion, its wait included.
		err := r.runTest(context.WithoutCancel(ctx), state, tc)
		res.Tests = append(res.Tests, *state.test)
		if err != nil {
			runErr = err
			break
		}
	}

	res.Finished = r.deps.Now()
	res.Pass = runErr == nil
	for _, t := range res.Tests {
		if !t.Skipped && !t.Pass {
			res.Pass = false
		}
	}

	passed, failed, skipped := res.Counts()
	r.logger.Info("run finished", "run_id", res.RunID, "passed", passed, "failed", failed,
		"skipped", skipped, "duration", res.Finished.Sub(res.Started))
	return res, runErr
}

// runTest drives one test through the phase sequence.
func (r *Runner) runTest(ctx context.Context, state *runState, tc testcase.TestCase) error {
	tr := state.begin(tc)
	r.log.Banner(tc.Index, tc.Description)

	for state.phase != PhaseDone {
		r.logger.Debug("phase", "test", tc.Index, "phase", state.phase)

		var err error
		switch state.phase {
		case PhaseSetup:
			err = r.setup(ctx, tc, tr)
			state.phase = PhaseExecute
		case PhaseExecute:
			err = r.execute(ctx, tc)
			state.phase = PhaseAnalyze
		case PhaseAnalyze:
			err = r.analyze(ctx, state, tc, tr)
			state.phase = PhaseCleanup
		case PhaseCleanup:
			r.cleanup(ctx, tc, tr)
			state.phase = PhaseDone
		}
		if err != nil {
			r.log.Fail("test %02d aborted: %v", tc.Index, err)
			tr.Pass = false
			return err
		}
	}

	if tr.Pass {
		r.log.Pass("test %02d", tc.Index)
	} else {
		r.log.Fail("test %02d: %d finding(s)", tc.Index, len(tr.Findings))
	}
	return nil
}

func (r *Runner) setup(ctx context.Context, tc testcase.TestCase, tr *TestResult) error {
	for _, q := range r.cfg.Settings.CleanupQueues {
		n, err := transport.Drain(ctx, r.deps.Transport, q)
		if err != nil {
			return &FatalError{Reason: ReasonTransport, Test: tc.Index, Err: err}
		}
		if n > 0 {
			r.logger.Info("drained queue", "queue", q, "messages", n)
		}
	}

	r.runHook(ctx, tr, "db_pre", r.deps.PreDB, tc.DBPre)

	if err := r.deps.Tracer.Enable(ctx); err != nil {
		r.finding(tr, Finding{Kind: FindingTrace, Message: fmt.Sprintf("enable trace: %v", err)})
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, tc testcase.TestCase) error {
	path := r.layout.Input(tc.Index)
	msg, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("input message %s not found", path)
		}
		return &FatalError{Reason: ReasonMissingInput, Test: tc.Index, Err: err}
	}

	queue := tc.QueueFor(r.cfg.Settings.InputQueue)
	if err := r.deps.Transport.Put(ctx, queue, msg); err != nil {
		return &FatalError{Reason: ReasonTransport, Test: tc.Index, Err: err}
	}
	r.logger.Info("message sent", "test", tc.Index, "queue", queue, "bytes", len(msg))

	if err := r.deps.Wait(ctx, r.cfg.Settings.Timeout); err != nil {
		return fmt.Errorf("wait interrupted: %w", err)
	}
	return nil
}

func (r *Runner) analyze(ctx context.Context, state *runState, tc testcase.TestCase, tr *TestResult) error {
	if err := r.deps.Tracer.Capture(ctx, r.layout.Trace(tc.Index)); err != nil {
		r.finding(tr, Finding{Kind: FindingTrace, Message: fmt.Sprintf("capture trace: %v", err)})
	}

	for pos, q := range tc.OutputQueues {
		slot := state.nextSlot()
		format := tc.FormatAt(pos)

		msg, ok, err := r.deps.Transport.Fetch(ctx, q)
		if err != nil {
			return &FatalError{Reason: ReasonTransport, Test: tc.Index, Err: err}
		}
		if !ok {
			tr.Slots = append(tr.Slots, SlotResult{Slot: slot, Queue: q, Format: format, Outcome: compare.MissingActual.String()})
			r.finding(tr, Finding{
				Kind:    FindingMissingActual,
				Slot:    slot,
				Queue:   q,
				Message: fmt.Sprintf("no message on %s for slot %02d", q, slot),
			})
			continue
		}

		if err := r.compareSlot(slot, q, format, msg, tr); err != nil {
			return err
		}
	}

	for i, q := range tc.EmptyQueues {
		msg, ok, err := r.deps.Transport.Fetch(ctx, q)
		if err != nil {
			return &FatalError{Reason: ReasonTransport, Test: tc.Index, Err: err}
		}
		if !ok {
			r.logger.Debug("queue empty", "queue", q)
			continue
		}
		path := r.layout.Stray(tc.Index, i+1, q)
		if err := writeFile(path, msg); err != nil {
			return err
		}
		r.finding(tr, Finding{
			Kind:    FindingUnexpectedMessage,
			Queue:   q,
			Message: fmt.Sprintf("queue %s should be empty; message saved to %s", q, path),
		})
	}
	return nil
}

func (r *Runner) compareSlot(slot int, queue string, format compare.Format, msg []byte, tr *TestResult) error {
	actualPath := r.layout.Actual(slot, "")
	if err := writeFile(actualPath, msg); err != nil {
		return err
	}

	name := layout.Name(slot)
	out := r.cmp.CompareFile(r.layout.Expected(slot, ""), msg, format, compare.Labels{
		Expected: filepath.Join(layout.ExpectedDir, name),
		Actual:   filepath.Join(layout.ActualDir, name),
	})

	for _, d := range out.Derived {
		if err := writeFile(r.layout.Actual(slot, d.Suffix), d.Actual); err != nil {
			return err
		}
		if err := writeFile(r.layout.Expected(slot, d.Suffix), d.Expected); err != nil {
			return err
		}
	}

	sr := SlotResult{Slot: slot, Queue: queue, Format: format, Outcome: out.Kind.String()}
	for _, p := range out.Parts {
		if sr.Parts == nil {
			sr.Parts = map[string]string{}
		}
		sr.Parts[p.Name] = p.Kind.String()
	}
	tr.Slots = append(tr.Slots, sr)

	if out.OK() {
		r.log.Pass("slot %02d (%s, %s)", slot, queue, format)
		return nil
	}

	msgText := fmt.Sprintf("slot %02d (%s, %s): %s", slot, queue, format, out.Kind)
	if out.Err != nil {
		msgText += ": " + out.Err.Error()
	}
	r.finding(tr, Finding{Kind: findingFor(out.Kind), Slot: slot, Queue: queue, Message: msgText, Diff: out.Diff})
	return nil
}

func (r *Runner) cleanup(ctx context.Context, tc testcase.TestCase, tr *TestResult) {
	r.runHook(ctx, tr, "db_post", r.deps.PostDB, tc.DBPost)
}

func (r *Runner) runHook(ctx context.Context, tr *TestResult, name string, s dbhook.Session, hook string) {
	if hook == "" {
		return
	}
	if s == nil {
		r.finding(tr, Finding{Kind: FindingDBHook, Message: name + ": no database connection configured"})
		return
	}
	n, err := dbhook.Run(ctx, s, hook, r.cfg.BaseDir)
	if err != nil {
		r.finding(tr, Finding{Kind: FindingDBHook, Message: fmt.Sprintf("%s: %v", name, err)})
		return
	}
	r.logger.Info("db hook", "hook", name, "statements", n)
}

// finding records f and logs it.
func (r *Runner) finding(tr *TestResult, f Finding) {
	tr.AddFinding(f)
	r.log.Fail("%s", f.Message)
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
