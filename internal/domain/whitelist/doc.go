// Package whitelist manages the user-curated set of applications
// eligible for session tracking.
package whitelist
