package coord_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/seantiz/evalengine/internal/coord"
	"github.com/seantiz/evalengine/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestWatchSourceSignalsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	ws, err := coord.NewWatchSource(dir, discardLogger())
	require.NoError(t, err)
	defer ws.Close()

	writeDoc(t, dir, `{"engines": {"E1": {"task": {"command": "get ready"}}}}`)

	select {
	case <-ws.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("no change signal after writing the coordination document")
	}

	doc, err := ws.ReadTasks(context.Background())
	require.NoError(t, err)
	entry, ok := coord.LookupTask(doc, "E1")
	require.True(t, ok)
	assert.Equal(t, model.CommandGetReady, entry.Task.Command)
}

func TestWatchSourceIgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	ws, err := coord.NewWatchSource(dir, discardLogger())
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "params.json"), []byte(`{}`), 0o644))

	select {
	case <-ws.Changes():
		t.Fatal("unexpected change signal for unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatchSourceMissingDirectory(t *testing.T) {
	_, err := coord.NewWatchSource(filepath.Join(t.TempDir(), "nope"), discardLogger())
	assert.Error(t, err)
}

func TestWatchSourceCloseIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	ws, err := coord.NewWatchSource(t.TempDir(), discardLogger())
	require.NoError(t, err)
	require.NoError(t, ws.Close())
	assert.NoError(t, ws.Close())
}
