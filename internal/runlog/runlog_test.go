package runlog

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog(level slog.Level) (*Log, *bytes.Buffer, *bytes.Buffer) {
	var console, file bytes.Buffer
	l := New(&console, &file, level)
	l.DisableColor()
	return l, &console, &file
}

func TestLog_Lines(t *testing.T) {
	l, console, file := newTestLog(slog.LevelInfo)

	l.Banner(3, "routing")
	l.Pass("slot %02d", 4)
	l.Fail("slot %02d: %s", 5, "mismatch")
	l.Skip(4, "other")

	want := "=== test 03: routing\nPASS slot 04\nFAIL slot 05: mismatch\n--- SKIP test 04: other\n"
	assert.Equal(t, want, file.String())
	assert.Equal(t, want, console.String())
}

func TestLog_Diff(t *testing.T) {
	l, console, file := newTestLog(slog.LevelInfo)
	diff := "--- expected/01\n+++ actual/01\n@@ -1 +1 @@\n-a\n+b\n"

	l.Diff("actual/01", diff)

	assert.Equal(t, "diff actual/01\n"+diff, file.String())
	assert.Equal(t, "diff actual/01\n"+diff, console.String())
}

func TestLog_Logger(t *testing.T) {
	l, console, file := newTestLog(slog.LevelInfo)

	l.Logger.Info("message sent", "queue", "ORDERS.IN")
	l.Logger.Debug("hidden")

	assert.Contains(t, file.String(), "msg=\"message sent\" queue=ORDERS.IN")
	assert.Contains(t, console.String(), "queue=ORDERS.IN")
	assert.NotContains(t, file.String(), "hidden")
}

func TestOpen_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msgharness.log")
	require.NoError(t, os.WriteFile(path, []byte("old run\n"), 0644))

	l, err := Open(path, nil, slog.LevelInfo)
	require.NoError(t, err)
	l.Printf("new run")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new run\n", string(data))
}
