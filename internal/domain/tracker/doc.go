// Package tracker implements the per-application session state machine:
// sessions start when a whitelisted app is first observed running, are
// updated with running averages and peaks every tick, and close the tick
// the app is no longer observed.
package tracker
