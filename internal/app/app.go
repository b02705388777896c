package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/maprgate/internal/catalog"
	"github.com/vk/maprgate/internal/config"
	"github.com/vk/maprgate/internal/ctxlog"
	"github.com/vk/maprgate/internal/dispatch"
	"github.com/vk/maprgate/internal/httpapi"
	"github.com/vk/maprgate/internal/identity"
	"github.com/vk/maprgate/internal/registry"
)

// App encapsulates the gateway's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	model    *config.Model
	catalog  *catalog.Store
	ids      *identity.Store
	server   *httpapi.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Configuration problems at this stage are fatal and panic; the caller
// recovers to present a clean exit message.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		// A failure to load config is a fatal startup error.
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	applyOverrides(model, appConfig)
	logger.Debug("Configuration model ready.", "listen_addr", model.Server.ListenAddr, "workers", model.Server.Workers)

	cat := catalog.Default()
	if len(model.Catalog) > 0 {
		cat = catalog.New(model.Catalog)
	}
	logger.Debug("Product catalog ready.", "products", cat.Len())

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(cat, model)
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All agent modules registered.", "count", len(modules))

	// Configuration may disable compiled-in agents; drop them before any
	// traffic so a disabled agent behaves exactly like an unknown one.
	var enabled []string
	for name, agentCfg := range model.Agents {
		if !agentCfg.Enabled {
			logger.Info("Agent disabled by configuration.", "name", name)
			reg.Remove(name)
			continue
		}
		enabled = append(enabled, name)
	}

	if err := reg.Validate(ctx, enabled); err != nil {
		// Mismatch between code and config is a programmer error.
		panic(err)
	}
	logger.Debug("Registry validation passed.", "agents", reg.Names())

	ids := identity.NewStore(credentialSeeds(model))
	dispatcher := dispatch.New(reg, model.Server.RequestTimeout)
	coordinator := dispatch.NewCoordinator(dispatcher, model.Server.Workers)

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		model:    model,
		catalog:  cat,
		ids:      ids,
		server:   httpapi.NewServer(logger, ids, dispatcher, coordinator),
	}
}

// applyOverrides folds CLI flags over the file-based server settings.
func applyOverrides(model *config.Model, appConfig *Config) {
	if appConfig.ListenAddr != "" {
		model.Server.ListenAddr = appConfig.ListenAddr
	}
	if appConfig.Workers > 0 {
		model.Server.Workers = appConfig.Workers
	}
	if appConfig.RequestTimeout > 0 {
		model.Server.RequestTimeout = appConfig.RequestTimeout
	}
}

func credentialSeeds(model *config.Model) []identity.Credential {
	seeds := make([]identity.Credential, 0, len(model.Credentials))
	for _, c := range model.Credentials {
		seeds = append(seeds, identity.Credential{
			Username:     c.Username,
			DisplayName:  c.DisplayName,
			PasswordHash: c.PasswordHash,
		})
	}
	return seeds
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Identity returns the application's identity store. This is primarily for testing.
func (a *App) Identity() *identity.Store {
	return a.ids
}

// Handler returns the HTTP handler serving the gateway's routes. This is
// primarily for testing against httptest servers.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}
