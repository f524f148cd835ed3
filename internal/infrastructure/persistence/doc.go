// Package persistence stores durable agent state in a local JSON file
// and optionally mirrors it to a remote store, reconciling the two with
// a union merge.
package persistence
