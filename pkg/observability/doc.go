// Package observability bundles the operational plumbing shared by the
// condoplane components: structured JSON logging over log/slog,
// Prometheus metrics, liveness/readiness probes, OpenTelemetry trace
// setup, and graceful shutdown coordination.
package observability
