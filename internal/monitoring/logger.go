// Package monitoring centralizes diagnostic logging for the experiment
// services. Long-running work such as benchmark sweeps, session eviction,
// and request handling reports through Logf so binaries can redirect or
// mute it without touching the call sites.
package monitoring

import "log"

// logf is the active sink. It defaults to the standard logger.
var logf = log.Printf

// Logf writes one diagnostic line through the active sink.
func Logf(format string, v ...interface{}) {
	logf(format, v...)
}

// SetLogger replaces the sink. A nil sink mutes diagnostics entirely.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		logf = func(string, ...interface{}) {}
		return
	}
	logf = f
}
