// Package hclconfig is the HCL implementation of the config.Loader
// interface. It discovers .hcl files under a path and decodes server,
// credential, agent, and product blocks into the unified model.
package hclconfig

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/maprgate/internal/catalog"
	"github.com/vk/maprgate/internal/config"
	"github.com/vk/maprgate/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Server      *serverBlock       `hcl:"server,block"`
	Credentials []*credentialBlock `hcl:"credential,block"`
	Agents      []*agentBlock      `hcl:"agent,block"`
	Products    []*productBlock    `hcl:"product,block"`
	Remain      hcl.Body           `hcl:",remain"`
}

type serverBlock struct {
	ListenAddr     string `hcl:"listen_addr,optional"`
	RequestTimeout string `hcl:"request_timeout,optional"`
	Workers        int    `hcl:"workers,optional"`
}

type credentialBlock struct {
	Username     string `hcl:"username,label"`
	DisplayName  string `hcl:"display_name,optional"`
	PasswordHash string `hcl:"password_hash"`
}

type agentBlock struct {
	Name     string         `hcl:"name,label"`
	Enabled  *bool          `hcl:"enabled,optional"`
	Settings *settingsBlock `hcl:"settings,block"`
}

// settingsBlock captures the raw body of a settings block; its attributes
// are free-form and decoded lazily by decodeSettings.
type settingsBlock struct {
	Remain hcl.Body `hcl:",remain"`
}

type productBlock struct {
	ID          string   `hcl:"id,label"`
	Name        string   `hcl:"name"`
	Category    string   `hcl:"category"`
	Price       float64  `hcl:"price"`
	Rating      float64  `hcl:"rating,optional"`
	Features    []string `hcl:"features,optional"`
	Description string   `hcl:"description,optional"`
	Stock       int      `hcl:"stock,optional"`
	Tags        []string `hcl:"tags,optional"`
}

// Load orchestrates the HCL configuration loading process. Blocks from every
// discovered file merge into one model; for scalar blocks like server, the
// last file parsed wins, matching registration semantics elsewhere.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	files, err := l.findHCLFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl configuration files found at %s", path)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := config.NewModel()
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if err := l.mergeRoot(model, &root); err != nil {
			return nil, fmt.Errorf("invalid configuration in %s: %w", file, err)
		}
	}

	logger.Debug("Configuration loaded and translated into unified model.",
		"credentials", len(model.Credentials), "agents", len(model.Agents), "products", len(model.Catalog))
	return model, nil
}

// mergeRoot folds one decoded file into the model.
func (l *Loader) mergeRoot(model *config.Model, root *fileRoot) error {
	if root.Server != nil {
		if root.Server.ListenAddr != "" {
			model.Server.ListenAddr = root.Server.ListenAddr
		}
		if root.Server.RequestTimeout != "" {
			timeout, err := time.ParseDuration(root.Server.RequestTimeout)
			if err != nil {
				return fmt.Errorf("invalid request_timeout: %w", err)
			}
			model.Server.RequestTimeout = timeout
		}
		if root.Server.Workers > 0 {
			model.Server.Workers = root.Server.Workers
		}
	}

	for _, cred := range root.Credentials {
		model.Credentials = append(model.Credentials, config.Credential{
			Username:     cred.Username,
			DisplayName:  cred.DisplayName,
			PasswordHash: cred.PasswordHash,
		})
	}

	for _, agent := range root.Agents {
		enabled := true
		if agent.Enabled != nil {
			enabled = *agent.Enabled
		}
		var settings map[string]any
		if agent.Settings != nil {
			var err error
			settings, err = decodeSettings(agent.Settings.Remain)
			if err != nil {
				return fmt.Errorf("agent '%s': %w", agent.Name, err)
			}
		}
		model.Agents[agent.Name] = config.Agent{Enabled: enabled, Settings: settings}
	}

	for _, p := range root.Products {
		model.Catalog = append(model.Catalog, catalog.Product{
			ID:          p.ID,
			Name:        p.Name,
			Category:    p.Category,
			Price:       p.Price,
			Rating:      p.Rating,
			Features:    p.Features,
			Description: p.Description,
			Stock:       p.Stock,
			Tags:        p.Tags,
		})
	}

	return nil
}

// findHCLFiles resolves path to the list of .hcl files to parse. A file path
// is returned as-is; a directory is walked recursively.
func (l *Loader) findHCLFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat configuration path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".hcl") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk configuration directory: %w", err)
	}
	return files, nil
}
