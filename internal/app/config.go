package app

import (
	"errors"
	"time"
)

// Config holds the CLI-level configuration for an App instance to run.
// Zero values for the override fields mean "use the configuration file's
// value".
type Config struct {
	ConfigPath string // hcl file or directory

	LogFormat string
	LogLevel  string

	ListenAddr     string        // overrides server.listen_addr
	Workers        int           // overrides server.workers
	RequestTimeout time.Duration // overrides server.request_timeout
}

// NewConfig validates the CLI configuration.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}

	return &cfg, nil
}
