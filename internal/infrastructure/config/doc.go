// Package config loads agent configuration from environment variables or
// an optional YAML file.
package config
