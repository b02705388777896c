// Package registry provides the central mapping between agent names and the
// compiled Go handlers that implement them.
//
// The Registry is populated once during application startup, before the
// transport layer accepts traffic, and is read-only afterwards. That makes
// Lookup safe for concurrent callers without synchronization. Registration
// mistakes (duplicate names, configuration referencing an agent that was
// never compiled in) are programmer errors and fail startup loudly.
package registry
