// Package activity attributes the once-per-tick global input reading to
// the application holding OS input focus.
package activity
