package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/maprgate/internal/agent"
	"github.com/vk/maprgate/internal/ctxlog"
	"github.com/vk/maprgate/internal/registry"
	"github.com/vk/maprgate/internal/task"
)

// Dispatcher routes one task to its handler and wraps whatever happens into
// an Outcome. It holds a reference to the immutable registry and a
// per-invocation deadline; it has no other state, so a single Dispatcher
// serves all concurrent requests.
type Dispatcher struct {
	reg     *registry.Registry
	timeout time.Duration
}

// New creates a Dispatcher. A timeout of zero disables the deadline.
func New(reg *registry.Registry, timeout time.Duration) *Dispatcher {
	return &Dispatcher{reg: reg, timeout: timeout}
}

// Dispatch resolves the task's agent, invokes its handler exactly once, and
// returns the normalized outcome. It never returns an error: an unknown
// agent or a handler failure is itself a successful dispatch-layer outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, t task.Task) task.Outcome {
	logger := ctxlog.FromContext(ctx).With("agent", t.Agent)

	h, ok := d.reg.Lookup(t.Agent)
	if !ok {
		logger.Debug("No handler registered for agent.")
		return task.Failure(t.Agent, task.ErrorUnknownAgent, fmt.Sprintf("no handler registered for agent '%s'", t.Agent))
	}

	result, err := d.invoke(ctx, h, t)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("Handler exceeded the request deadline.", "timeout", d.timeout)
			return task.Failure(t.Agent, task.ErrorTimeout, fmt.Sprintf("handler did not complete within %s", d.timeout))
		}
		logger.Debug("Handler failed.", "error", err)
		return task.Failure(t.Agent, task.ErrorHandler, err.Error())
	}

	logger.Debug("Handler completed.")
	return task.Success(t.Agent, result)
}

// invokeResult safely passes a handler's return values out of its goroutine.
type invokeResult struct {
	value any
	err   error
}

// invoke runs the handler under the configured deadline. The handler runs in
// its own goroutine so that a handler ignoring its context cannot stall the
// dispatch; a panic inside the handler is converted to an error rather than
// being allowed past the dispatcher boundary.
func (d *Dispatcher) invoke(ctx context.Context, h agent.Handler, t task.Task) (any, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	done := make(chan invokeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- invokeResult{err: fmt.Errorf("handler panicked: %v", r)}
			}
		}()
		value, err := h.Handle(ctx, t)
		done <- invokeResult{value: value, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
