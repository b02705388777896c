// Package inventory implements the 'inventory' agent: a thin client over
// the upstream stock service. It exists so availability checks share the
// gateway's dispatch and error contract instead of every caller talking to
// the stock service directly.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resty.dev/v3"

	"github.com/vk/maprgate/internal/agent"
	"github.com/vk/maprgate/internal/ctxlog"
	"github.com/vk/maprgate/internal/registry"
	"github.com/vk/maprgate/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	client  *resty.Client
	baseURL string
}

// New creates the inventory agent from its configuration settings. The
// upstream_url setting names the stock service; without it the agent still
// registers but fails every task with a configuration error.
func New(settings map[string]any) *Module {
	m := &Module{}
	if url, ok := settings["upstream_url"].(string); ok {
		m.baseURL = url
	}

	timeout := 10 * time.Second
	if raw, ok := settings["timeout"].(string); ok {
		if parsed, err := time.ParseDuration(raw); err == nil {
			timeout = parsed
		}
	}

	m.client = resty.New().
		SetBaseURL(m.baseURL).
		SetTimeout(timeout)
	return m
}

// Name implements agent.Handler.
func (m *Module) Name() string { return "inventory" }

// Register registers the handler with the gateway registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler(m)
}

// Input defines the payload shape the inventory agent accepts.
type Input struct {
	ProductID string `json:"product_id"`
}

// Output is the upstream stock answer.
type Output struct {
	ProductID string `json:"product_id"`
	Available bool   `json:"available"`
	Stock     int    `json:"stock"`
}

// Handle asks the upstream stock service about one product. Upstream
// failures come back as ordinary handler errors, which the dispatcher wraps
// into the outcome envelope.
func (m *Module) Handle(ctx context.Context, t task.Task) (any, error) {
	logger := ctxlog.FromContext(ctx).With("agent", m.Name())

	var in Input
	if err := agent.DecodePayload(t, &in); err != nil {
		return nil, err
	}
	if in.ProductID == "" {
		return nil, errors.New("product_id is required")
	}
	if m.baseURL == "" {
		return nil, errors.New("inventory agent is not configured: upstream_url setting is missing")
	}

	logger.Debug("Checking upstream stock.", "product_id", in.ProductID, "upstream", m.baseURL)

	var out Output
	resp, err := m.client.R().
		SetContext(ctx).
		SetPathParam("id", in.ProductID).
		SetResult(&out).
		Get("/stock/{id}")
	if err != nil {
		return nil, fmt.Errorf("upstream fetch failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("upstream returned status %s", resp.Status())
	}

	return &out, nil
}
