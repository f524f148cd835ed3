// Package input implements the global activity source: keystroke and
// mouse-travel accumulators drained once per tick. The OS-level hooks
// that feed it live outside this repository.
package input
