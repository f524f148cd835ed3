// Package engine drives the polling loop: once per tick it snapshots
// running processes, reads accumulated input, advances every tracked
// app's session state machine, and persists closed sessions.
package engine
