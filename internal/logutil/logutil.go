package logutil

import (
	"log"
	"time"
)

// Logf logs through l, or does nothing when no logger was supplied.
// Pipeline stages take their logger on an options struct instead of writing
// to process-global state, so a nil logger must be usable.
func Logf(l *log.Logger, format string, args ...interface{}) {
	if l != nil {
		l.Printf(format, args...)
	}
}

// Timing logs the start of an operation and returns a func that logs its
// duration when called.
func Timing(l *log.Logger, operation string) func() {
	if l == nil {
		return func() {}
	}
	start := time.Now()
	l.Printf("starting: %s", operation)
	return func() {
		l.Printf("completed: %s (took %v)", operation, time.Since(start))
	}
}
