package coord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/seantiz/evalengine/internal/model"
)

// Well-known document names inside the shared directory roots.
const (
	InputDocument  = "master.json"
	OutputDocument = "engine.json"
)

var (
	// ErrNotFound is returned when the coordination document does not exist yet.
	ErrNotFound = errors.New("coordination document not found")

	// ErrMalformed is returned when the coordination document exists but does
	// not parse as {"engines": {...}}.
	ErrMalformed = errors.New("coordination document malformed")
)

// FileSource reads the coordination document from a path on a shared volume.
type FileSource struct {
	path string
}

// NewFileSource returns a source reading <inputsDir>/master.json.
func NewFileSource(inputsDir string) *FileSource {
	return &FileSource{path: filepath.Join(inputsDir, InputDocument)}
}

// Path returns the coordination document path.
func (s *FileSource) Path() string {
	return s.path
}

// ReadTasks reads and parses the coordination document. The controller may
// be rewriting the file concurrently; a torn read surfaces as ErrMalformed and
// is expected to succeed on a later attempt.
func (s *FileSource) ReadTasks(ctx context.Context) (*model.CoordinationDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read coordination document: %w", err)
	}

	return ParseDocument(data)
}

// ParseDocument decodes raw coordination document bytes. Entries are decoded
// one by one so an entry that does not fit the task schema only affects the
// engine it is addressed to; it is recorded in doc.Invalid.
func ParseDocument(data []byte) (*model.CoordinationDocument, error) {
	var raw struct {
		Engines map[string]json.RawMessage `json:"engines"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw.Engines == nil {
		return nil, fmt.Errorf("%w: missing engines object", ErrMalformed)
	}

	doc := &model.CoordinationDocument{Engines: make(map[string]model.TaskEntry, len(raw.Engines))}
	for id, msg := range raw.Engines {
		var entry model.TaskEntry
		if err := json.Unmarshal(msg, &entry); err != nil {
			if doc.Invalid == nil {
				doc.Invalid = make(map[string]error)
			}
			doc.Invalid[id] = err
			continue
		}
		doc.Engines[id] = entry
	}
	return doc, nil
}

// LookupTask returns the task entry addressed to id, if the document has one.
func LookupTask(doc *model.CoordinationDocument, id string) (model.TaskEntry, bool) {
	if doc == nil {
		return model.TaskEntry{}, false
	}
	entry, ok := doc.Engines[id]
	return entry, ok
}

// EntryError reports whether the entry addressed to id was present but did
// not decode. The result wraps ErrMalformed; it is nil otherwise.
func EntryError(doc *model.CoordinationDocument, id string) error {
	if doc == nil {
		return nil
	}
	if err, ok := doc.Invalid[id]; ok {
		return fmt.Errorf("%w: entry %q: %v", ErrMalformed, id, err)
	}
	return nil
}
