// Package function holds the callable capabilities a model may delegate
// to: self-describing callbacks that accept JSON arguments and return JSON
// results, a registry resolving them by name, and the reflection-based
// conversion of Go input types to the wire schema.
package function

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/harunnryd/genkai/gemini"
)

var (
	// ErrDuplicateFunction reports a second registration under a taken name.
	ErrDuplicateFunction = errors.New("duplicate function name")

	// ErrUnknownFunction reports a name absent from the registry.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrInvalidName reports a function name the wire contract rejects.
	ErrInvalidName = errors.New("invalid function name")

	// ErrSerialization reports malformed JSON arguments or results, in
	// either direction.
	ErrSerialization = errors.New("serialization failed")
)

// namePattern is fixed by the remote contract: a-z, A-Z, 0-9, underscores
// and dashes, at most 63 characters.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,63}$`)

// ExecutionError wraps a failure inside a callback. The orchestration loop
// never swallows these or substitutes a default result.
type ExecutionError struct {
	Name string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("function %q failed: %v", e.Name, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Callback is a named, invocable capability. Implementations must be safe
// for concurrent invocation when the owning registry is shared across
// conversations; the orchestration loop does not serialize access.
type Callback interface {
	Name() string
	Description() string
	InputSchema() *gemini.Schema
	Call(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

type typedCallback[In any] struct {
	name        string
	description string
	schema      *gemini.Schema
	fn          func(context.Context, In) (any, error)
}

// New builds a Callback from a plain Go function. The input schema is
// derived from In by reflection; arguments are decoded strictly, so fields
// the schema never declared fail with ErrSerialization rather than being
// dropped.
func New[In any](name, description string, fn func(context.Context, In) (any, error)) (Callback, error) {
	if !namePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	var prototype In
	schema, err := SchemaOf(prototype)
	if err != nil {
		return nil, fmt.Errorf("schema for %q: %w", name, err)
	}
	return &typedCallback[In]{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
	}, nil
}

func (c *typedCallback[In]) Name() string                { return c.name }
func (c *typedCallback[In]) Description() string         { return c.description }
func (c *typedCallback[In]) InputSchema() *gemini.Schema { return c.schema }

func (c *typedCallback[In]) Call(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var in In
	if len(args) > 0 {
		dec := json.NewDecoder(bytes.NewReader(args))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return nil, fmt.Errorf("decode arguments for %q: %v: %w", c.name, err, ErrSerialization)
		}
	}

	out, err := c.fn(ctx, in)
	if err != nil {
		return nil, err
	}

	result, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode result of %q: %v: %w", c.name, err, ErrSerialization)
	}
	return result, nil
}
