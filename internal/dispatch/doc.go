// Package dispatch routes validated tasks to their registered handlers and
// normalizes every result or failure into the uniform outcome envelope.
//
// The propagation policy is strict: everything below the dispatcher boundary
// becomes a value, never an error return. An unknown agent, a handler
// failure, a deadline expiry, even a handler panic all land inside an
// Outcome, so a partial failure inside a batch can never prevent the other
// tasks' outcomes from being reported.
package dispatch
