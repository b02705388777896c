package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/vk/maprgate/internal/agent"
	"github.com/vk/maprgate/internal/registry"
	"github.com/vk/maprgate/internal/task"
)

// SimpleModule is a test helper for registering a single handler.
type SimpleModule struct {
	Handler agent.Handler
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	r.RegisterHandler(m.Handler)
}

// NewRegistry builds a registry pre-populated with the given handlers.
func NewRegistry(handlers ...agent.Handler) *registry.Registry {
	r := registry.New()
	for _, h := range handlers {
		r.RegisterHandler(h)
	}
	return r
}

// EchoAgent returns a handler named "echo" that wraps the incoming payload
// into a fixed envelope, making results easy to assert on.
func EchoAgent() agent.Handler {
	return agent.NewFunc("echo", func(_ context.Context, t task.Task) (any, error) {
		return map[string]any{"status": "ok", "data": t.Payload}, nil
	})
}

// FailAgent returns a handler named "fail" that always errors with the given
// message.
func FailAgent(message string) agent.Handler {
	return agent.NewFunc("fail", func(_ context.Context, _ task.Task) (any, error) {
		return nil, errors.New(message)
	})
}

// PanicAgent returns a handler named "panic" that panics on every call.
func PanicAgent(message string) agent.Handler {
	return agent.NewFunc("panic", func(_ context.Context, _ task.Task) (any, error) {
		panic(message)
	})
}

// BlockAgent returns a handler named "block" that never completes on its own;
// it waits for context cancellation and surfaces the context error. Useful
// for timeout tests.
func BlockAgent() agent.Handler {
	return agent.NewFunc("block", func(ctx context.Context, _ task.Task) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
}

// SpyAgent records every task it handles so tests can assert on what reached
// the handler, including the resolved caller identity.
type SpyAgent struct {
	mu    sync.Mutex
	tasks []task.Task

	// Result is returned from every call. Defaults to a plain string.
	Result any
}

// NewSpyAgent creates a SpyAgent with a default result.
func NewSpyAgent() *SpyAgent {
	return &SpyAgent{Result: "spied"}
}

// Name implements agent.Handler.
func (s *SpyAgent) Name() string { return "spy" }

// Handle implements agent.Handler.
func (s *SpyAgent) Handle(_ context.Context, t task.Task) (any, error) {
	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
	return s.Result, nil
}

// Tasks returns a copy of all recorded tasks.
func (s *SpyAgent) Tasks() []task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]task.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Calls returns how many tasks reached the handler.
func (s *SpyAgent) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
