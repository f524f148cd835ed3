// Command agent runs the tracking agent: the polling engine plus the
// local HTTP/WebSocket API consumed by the desktop UI.
package main
