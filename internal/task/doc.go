// Package task defines the data model shared by every layer of the gateway:
// the Task submitted by a caller, the Identity of that caller, and the
// Outcome envelope that uniformly wraps whatever a handler produced.
//
// A Task lives for exactly one dispatch. Validation of the raw request body
// happens here; validation of the payload's contents is each handler's own
// responsibility.
package task
