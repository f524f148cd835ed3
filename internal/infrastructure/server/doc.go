// Package server assembles the agent: persistence, tick engine, and the
// local HTTP/WebSocket API.
package server
