package coord

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/seantiz/evalengine/internal/model"
)

// FilePublisher writes the engine's status record to <outputsDir>/engine.json.
// Only one engine process writes a given file.
type FilePublisher struct {
	path string
}

// NewFilePublisher returns a publisher for <outputsDir>/engine.json.
func NewFilePublisher(outputsDir string) *FilePublisher {
	return &FilePublisher{path: filepath.Join(outputsDir, OutputDocument)}
}

// Path returns the output document path.
func (p *FilePublisher) Path() string {
	return p.path
}

// Publish replaces the output document with rec. The record is fully
// serialized before the file is opened and then written in a single call,
// so the window in which a reader can see a truncated file is one write.
// The output directory is not created; a missing directory is an error.
func (p *FilePublisher) Publish(ctx context.Context, rec model.Record) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(p.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open output document: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output document: %w", cerr)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write output document: %w", err)
	}
	return nil
}
