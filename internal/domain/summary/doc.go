// Package summary derives per-application and daily roll-up statistics
// from session snapshot histories: active/idle/background time,
// efficiency, average usage, and productivity breakdowns.
package summary
