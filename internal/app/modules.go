package app

import (
	"github.com/vk/maprgate/agents/browser"
	"github.com/vk/maprgate/agents/coordinator"
	"github.com/vk/maprgate/agents/finalizer"
	"github.com/vk/maprgate/agents/inventory"
	"github.com/vk/maprgate/agents/questioner"
	"github.com/vk/maprgate/internal/catalog"
	"github.com/vk/maprgate/internal/config"
	"github.com/vk/maprgate/internal/registry"
)

// coreModules is the default agent set compiled into the binary. Tests pass
// their own modules to NewApp instead.
func coreModules(cat *catalog.Store, model *config.Model) []registry.Module {
	return []registry.Module{
		browser.New(cat),
		questioner.New(),
		finalizer.New(cat),
		coordinator.New(),
		inventory.New(model.Agents["inventory"].Settings),
	}
}
