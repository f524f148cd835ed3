// Package types defines the shared domain types for the tracking engine:
// raw and aggregated process samples, activity readings, sessions,
// whitelist entries, and the persisted data shape exchanged with the
// local store and the cloud store.
package types
