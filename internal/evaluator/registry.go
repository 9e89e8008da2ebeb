package evaluator

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Evaluator kinds registered by NewDefaultRegistry.
const (
	KindTargets = "targets"
	KindExec    = "exec"
)

// ErrUnknownKind is returned when no factory is registered for a kind.
var ErrUnknownKind = errors.New("unknown evaluator kind")

// Options carries the settings a factory may need.
type Options struct {
	ConfigPath string
	Command    string
}

// Factory builds an Evaluator from Options.
type Factory func(opts Options) (Evaluator, error)

// Registry maps evaluator kinds to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// NewDefaultRegistry returns a registry with the built-in kinds.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindTargets, func(opts Options) (Evaluator, error) {
		if opts.ConfigPath == "" {
			return nil, errors.New("targets evaluator: config path is required")
		}
		return LoadTargets(opts.ConfigPath)
	})
	r.Register(KindExec, func(opts Options) (Evaluator, error) {
		return NewExec(opts.Command)
	})
	return r
}

// Register adds or replaces the factory for kind.
func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// Resolve builds the evaluator registered under kind.
func (r *Registry) Resolve(kind string, opts Options) (Evaluator, error) {
	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	ev, err := f(opts)
	if err != nil {
		return nil, fmt.Errorf("build %s evaluator: %w", kind, err)
	}
	return ev, nil
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
