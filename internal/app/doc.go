// Package app encapsulates the gateway's dependencies, configuration, and
// lifecycle: it builds the logger, loads the configuration model, populates
// and validates the registry, seeds the identity store, and runs the HTTP
// server until shutdown.
package app
