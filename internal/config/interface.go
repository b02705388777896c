package config

import "context"

// Loader turns serialized configuration at a path into the unified Model.
// The path may be a single file or a directory; the loader decides what file
// formats it accepts.
type Loader interface {
	Load(ctx context.Context, path string) (*Model, error)
}
