package coord

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/seantiz/evalengine/internal/model"
)

// WatchSource is a FileSource that also signals when the coordination
// document is created, written or renamed into place. Reads still go
// through FileSource, so the result shape is identical to plain polling.
type WatchSource struct {
	*FileSource

	watcher *fsnotify.Watcher
	logger  *slog.Logger
	changes chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewWatchSource watches the directory holding <inputsDir>/master.json. The
// directory must exist; the document itself may not.
func NewWatchSource(inputsDir string, logger *slog.Logger) (*WatchSource, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	src := NewFileSource(inputsDir)
	if err := w.Add(filepath.Dir(src.Path())); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(src.Path()), err)
	}

	ws := &WatchSource{
		FileSource: src,
		watcher:    w,
		logger:     logger,
		changes:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	go ws.run()
	return ws, nil
}

// ReadTasks reads the coordination document.
func (ws *WatchSource) ReadTasks(ctx context.Context) (*model.CoordinationDocument, error) {
	return ws.FileSource.ReadTasks(ctx)
}

// Changes returns a channel that receives a value after the document changes.
// Bursts of events collapse into one pending signal.
func (ws *WatchSource) Changes() <-chan struct{} {
	return ws.changes
}

// Close stops watching and waits for the event goroutine to exit.
func (ws *WatchSource) Close() error {
	var err error
	ws.once.Do(func() {
		err = ws.watcher.Close()
		<-ws.done
	})
	return err
}

func (ws *WatchSource) run() {
	defer close(ws.done)

	target := filepath.Clean(ws.Path())
	for {
		select {
		case event, ok := <-ws.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			select {
			case ws.changes <- struct{}{}:
			default:
				// A signal is already pending.
			}
		case err, ok := <-ws.watcher.Errors:
			if !ok {
				return
			}
			ws.logger.Warn("coordination watcher error", "error", err)
		}
	}
}
