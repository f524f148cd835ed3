// Package ws streams live session updates to connected clients over
// WebSocket.
package ws
