// Package agent defines the capability every registered agent implements.
//
// The dispatcher treats all handlers uniformly through this one interface;
// new agents are added solely by implementing it and registering with the
// registry, with zero change to the dispatch path.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vk/maprgate/internal/task"
)

// Handler is one named task-processing capability. Handle either produces a
// structured result or fails with an error; it never panics outward by
// contract, and the dispatcher additionally converts a panic into a handler
// error as a backstop.
type Handler interface {
	Name() string
	Handle(ctx context.Context, t task.Task) (any, error)
}

// handlerFunc adapts a plain function to the Handler interface.
type handlerFunc struct {
	name string
	fn   func(ctx context.Context, t task.Task) (any, error)
}

// NewFunc wraps fn as a Handler with the given name.
func NewFunc(name string, fn func(ctx context.Context, t task.Task) (any, error)) Handler {
	return &handlerFunc{name: name, fn: fn}
}

func (h *handlerFunc) Name() string { return h.name }

func (h *handlerFunc) Handle(ctx context.Context, t task.Task) (any, error) {
	return h.fn(ctx, t)
}

// DecodePayload decodes the task's opaque payload into the handler's own
// typed input struct. The core deliberately leaves payload shapes to each
// handler; this is the one place that typing is enforced.
func DecodePayload(t task.Task, v any) error {
	return Decode(t.Payload, v)
}

// Decode converts any structured value into v by round tripping through
// JSON. Agents also use it to read each other's outputs without importing
// each other's types.
func Decode(value any, v any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}
