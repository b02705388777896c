// Package config defines the format-agnostic configuration model for the
// gateway and the Loader interface that produces it.
//
// The model carries everything populated from configuration before traffic
// begins: server settings, credential seeds, per-agent settings, and the
// product catalog. Keeping the model free of any parsing concern lets tests
// construct it directly and keeps the HCL adapter swappable.
package config
