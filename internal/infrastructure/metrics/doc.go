// Package metrics exposes publisher activity as Prometheus metrics.
//
// Metrics are registered on a caller-supplied prometheus.Registerer so tests
// and embedded hosts can use their own registry. A nil *Metrics is valid and
// records nothing, which lets components take metrics as an optional
// dependency.
//
// Server serves the registry at /metrics together with a /health endpoint
// that reports whether the publisher can still deliver.
package metrics
