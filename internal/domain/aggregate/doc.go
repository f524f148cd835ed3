// Package aggregate collapses raw OS process records into logical
// per-application resource totals, folding helper and installer
// subprocesses into their parent application.
package aggregate
