package function

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/harunnryd/genkai/gemini"
)

// Registry holds the callbacks a model may call, keyed by their unique
// names. Registration is a startup-time operation; once serving, only the
// read-only lookup paths are exercised, so the registry needs no locking.
// Callbacks invoked from concurrent conversations must themselves be safe
// for concurrent use.
type Registry struct {
	callbacks map[string]Callback
}

func NewRegistry() *Registry {
	return &Registry{callbacks: make(map[string]Callback)}
}

// Register adds a callback under its name. The first registration wins: a
// duplicate name fails with ErrDuplicateFunction and leaves the registry
// unchanged.
func (r *Registry) Register(cb Callback) error {
	name := cb.Name()
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if _, exists := r.callbacks[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateFunction, name)
	}
	r.callbacks[name] = cb
	return nil
}

// Lookup returns the callback registered under name.
func (r *Registry) Lookup(name string) (Callback, bool) {
	cb, ok := r.callbacks[name]
	return cb, ok
}

// Names lists all registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.callbacks))
	for name := range r.callbacks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve maps the requested names to their wire declarations, preserving
// the given order. Any absent name fails the whole resolution with
// ErrUnknownFunction.
func (r *Registry) Resolve(names []string) ([]gemini.FunctionDeclaration, error) {
	decls := make([]gemini.FunctionDeclaration, 0, len(names))
	for _, name := range names {
		cb, ok := r.callbacks[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
		}
		decls = append(decls, gemini.FunctionDeclaration{
			Name:        cb.Name(),
			Description: cb.Description(),
			Parameters:  cb.InputSchema(),
		})
	}
	return decls, nil
}

// Invoke runs the named callback with the given JSON arguments. Unknown
// names fail with ErrUnknownFunction; a failing callback surfaces as an
// *ExecutionError wrapping the cause.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	cb, ok := r.callbacks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}

	start := time.Now()
	result, err := cb.Call(ctx, args)
	if err != nil {
		slog.Error("function invocation failed", "function", name, "duration", time.Since(start), "error", err)
		return nil, &ExecutionError{Name: name, Err: err}
	}

	slog.Debug("function invoked", "function", name, "duration", time.Since(start))
	return result, nil
}
