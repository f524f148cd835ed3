// Package http contains the gin handlers for the local REST API.
package http
