package config

import (
	"time"

	"github.com/vk/maprgate/internal/catalog"
)

// Model is the unified configuration for one gateway instance.
type Model struct {
	Server      Server
	Credentials []Credential
	Agents      map[string]Agent
	Catalog     []catalog.Product
}

// Server holds the transport-layer settings.
type Server struct {
	ListenAddr     string
	RequestTimeout time.Duration
	Workers        int
}

// Credential is one login seeded into the identity store.
type Credential struct {
	Username     string
	DisplayName  string
	PasswordHash string
}

// Agent carries the per-agent configuration. Settings is a free-form bag the
// core never interprets; each agent module decodes what it needs.
type Agent struct {
	Enabled  bool
	Settings map[string]any
}

// Defaults applied when the configuration omits a server block or leaves
// fields unset.
const (
	DefaultListenAddr     = ":8080"
	DefaultRequestTimeout = 30 * time.Second
	DefaultWorkers        = 4
)

// NewModel returns an empty model with defaults applied.
func NewModel() *Model {
	return &Model{
		Server: Server{
			ListenAddr:     DefaultListenAddr,
			RequestTimeout: DefaultRequestTimeout,
			Workers:        DefaultWorkers,
		},
		Agents: make(map[string]Agent),
	}
}

// AgentNames returns the names of all agents declared in configuration.
func (m *Model) AgentNames() []string {
	names := make([]string, 0, len(m.Agents))
	for name := range m.Agents {
		names = append(names, name)
	}
	return names
}
