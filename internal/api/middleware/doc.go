// Package middleware provides gin middleware for the local API.
package middleware
