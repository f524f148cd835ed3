// Package process provides the OS process table snapshot used by the
// tick loop.
package process
