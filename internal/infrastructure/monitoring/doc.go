// Package monitoring exposes Prometheus metrics for the tick loop,
// session lifecycle, persistence, and the local HTTP API.
package monitoring
