package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/maprgate/internal/ctxlog"
)

// Validate performs a strict parity check between configuration and Go code:
// every agent the configuration names must have a compiled-in handler. A
// mismatch means the binary and its config are out of sync, which is a fatal
// startup error, not something to discover on the first live request.
func (r *Registry) Validate(ctx context.Context, configured []string) error {
	logger := ctxlog.FromContext(ctx)

	var errs []string
	for _, name := range configured {
		if _, ok := r.handlers[name]; !ok {
			errs = append(errs, fmt.Sprintf("agent '%s': declared in configuration but no handler is registered", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	logger.Debug("Registry validation passed.", "configured_count", len(configured), "registered_count", len(r.handlers))
	return nil
}
