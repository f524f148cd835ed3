// Package resilience provides exponential backoff retry and a circuit
// breaker for flaky collaborators (process snapshots after wake, the
// cloud store).
package resilience
