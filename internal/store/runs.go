package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/msgharness/internal/harness"
)

// Test statuses as stored.
const (
	StatusPass = "pass"
	StatusFail = "fail"
	StatusSkip = "skip"
)

// Run is the stored summary of one run.
type Run struct {
	Seq      int64
	ID       string
	Started  time.Time
	Finished time.Time
	Pass     bool
	Passed   int
	Failed   int
	Skipped  int
}

// TestRecord is the stored outcome of one test in one run.
type TestRecord struct {
	RunID       string
	Index       int
	Description string
	Status      string
}

// FindingRecord is a stored finding.
type FindingRecord struct {
	TestIndex int
	Kind      harness.FindingKind
	Slot      int
	Queue     string
	Message   string
	Diff      string
}

func status(t harness.TestResult) string {
	switch {
	case t.Skipped:
		return StatusSkip
	case t.Pass:
		return StatusPass
	default:
		return StatusFail
	}
}

// RecordRun writes a run with its tests and findings in one transaction.
// Recording the same run ID twice is a no-op.
func (s *Store) RecordRun(ctx context.Context, res *harness.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	passed, failed, skipped := res.Counts()
	r, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, started, finished, pass, passed, failed, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		res.RunID,
		res.Started.UTC().Format(time.RFC3339Nano),
		res.Finished.UTC().Format(time.RFC3339Nano),
		res.Pass,
		passed, failed, skipped,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if n, err := r.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	for _, t := range res.Tests {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tests (run_id, idx, description, status)
			VALUES (?, ?, ?, ?)
		`, res.RunID, t.Index, t.Description, status(t)); err != nil {
			return fmt.Errorf("record test %d: %w", t.Index, err)
		}

		for i, f := range t.Findings {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO findings (run_id, test_idx, ord, kind, slot, queue, message, diff)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, res.RunID, t.Index, i, string(f.Kind), f.Slot, f.Queue, f.Message, f.Diff); err != nil {
				return fmt.Errorf("record finding for test %d: %w", t.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Runs returns up to limit runs, most recent first. A limit of zero or less
// returns all runs.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, started, finished, pass, passed, failed, skipped
		FROM runs
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LastRun returns the most recently recorded run. The bool is false when the
// history is empty.
func (s *Store) LastRun(ctx context.Context) (Run, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, started, finished, pass, passed, failed, skipped
		FROM runs
		ORDER BY seq DESC
		LIMIT 1
	`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	return run, true, nil
}

// Tests returns the stored tests of a run ordered by index.
func (s *Store) Tests(ctx context.Context, runID string) ([]TestRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, idx, description, status
		FROM tests
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query tests: %w", err)
	}
	return collectTests(rows)
}

// TestHistory returns the outcome of test index across runs, most recent
// first.
func (s *Store) TestHistory(ctx context.Context, index int) ([]TestRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.run_id, t.idx, t.description, t.status
		FROM tests t
		JOIN runs r ON r.id = t.run_id
		WHERE t.idx = ?
		ORDER BY r.seq DESC
	`, index)
	if err != nil {
		return nil, fmt.Errorf("query test history: %w", err)
	}
	return collectTests(rows)
}

// Findings returns the findings of a run in test and recording order.
func (s *Store) Findings(ctx context.Context, runID string) ([]FindingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT test_idx, kind, slot, queue, message, diff
		FROM findings
		WHERE run_id = ?
		ORDER BY test_idx ASC, ord ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	findings := []FindingRecord{}
	for rows.Next() {
		var f FindingRecord
		var kind string
		if err := rows.Scan(&f.TestIndex, &kind, &f.Slot, &f.Queue, &f.Message, &f.Diff); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		f.Kind = harness.FindingKind(kind)
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate findings: %w", err)
	}
	return findings, nil
}

func collectTests(rows *sql.Rows) ([]TestRecord, error) {
	defer rows.Close()

	tests := []TestRecord{}
	for rows.Next() {
		var t TestRecord
		if err := rows.Scan(&t.RunID, &t.Index, &t.Description, &t.Status); err != nil {
			return nil, fmt.Errorf("scan test: %w", err)
		}
		tests = append(tests, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tests: %w", err)
	}
	return tests, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var started, finished string
	err := sc.Scan(&run.Seq, &run.ID, &started, &finished, &run.Pass, &run.Passed, &run.Failed, &run.Skipped)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if run.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, fmt.Errorf("parse started of run %s: %w", run.ID, err)
	}
	if run.Finished, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return Run{}, fmt.Errorf("parse finished of run %s: %w", run.ID, err)
	}
	return run, nil
}
