// Package dbhook runs the SQL set-up and tear-down hooks of a test.
//
// A hook is either an inline statement or "@path", naming a script file
// relative to the configuration directory. Scripts are split into
// statements at semicolons that end a line; each piece is executed in turn.
package dbhook

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Session executes statements against a database.
type Session interface {
	Exec(ctx context.Context, stmt string) error
	Close() error
}

// SQL is a Session over database/sql.
type SQL struct {
	db     *sql.DB
	driver string
}

// Open connects using one of the registered drivers (sqlite3, mysql, pgx)
// and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*SQL, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	// Hooks run sequentially; one connection keeps session state between
	// statements of a script.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	return &SQL{db: db, driver: driver}, nil
}

// Exec implements Session.
func (s *SQL) Exec(ctx context.Context, stmt string) error {
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%s: %w", s.driver, err)
	}
	return nil
}

// Close implements Session.
func (s *SQL) Close() error {
	return s.db.Close()
}

// Run executes hook on s and returns the number of statements run. An empty
// hook does nothing.
func Run(ctx context.Context, s Session, hook, baseDir string) (int, error) {
	hook = strings.TrimSpace(hook)
	if hook == "" {
		return 0, nil
	}

	text := hook
	if path, ok := strings.CutPrefix(hook, "@"); ok {
		path = strings.TrimSpace(path)
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("failed to read hook script: %w", err)
		}
		text = string(data)
	}

	n := 0
	for _, stmt := range Statements(text) {
		if err := s.Exec(ctx, stmt); err != nil {
			return n, fmt.Errorf("statement %d: %w", n+1, err)
		}
		n++
	}
	return n, nil
}

// Statements splits a script at semicolons that end a line. Blank pieces
// are dropped.
func Statements(script string) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" && s != ";" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for _, line := range strings.Split(script, "\n") {
		cur.WriteString(line)
		cur.WriteByte('\n')
		if strings.HasSuffix(strings.TrimSpace(line), ";") {
			flush()
		}
	}
	flush()
	return out
}
