// Package logsink is the one place every fatal diagnostic in this module
// routes through. The teacher's VMM reports failures with log.Fatal or a
// bare fmt.Printf; this driver runs several independently-scheduled queue
// goroutines at once, so its diagnostics carry structured fields
// (component, resource) instead of interleaved free-text lines.
package logsink

import (
	"os"

	"github.com/rs/zerolog"
)

// Log is the package-wide structured logger. Tests may redirect its
// output by reassigning Log.
var Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
	With().Timestamp().Logger()

// Fatal logs a structured fatal diagnostic and terminates the process.
// Together with Fatalf it is the process-exit point described by the
// driver's error handling design: every unrecoverable condition at init
// or on the hot path funnels through one of the two instead of panicking.
func Fatal(component, resource string, err error) {
	Log.Error().
		Str("component", component).
		Str("resource", resource).
		Err(err).
		Msg("fatal")

	os.Exit(1)
}

// Fatalf is Fatal without an underlying error value, for conditions that
// are fatal but not represented as a Go error (e.g. a protocol violation
// observed in hardware state).
func Fatalf(component, format string, args ...interface{}) {
	Log.Error().
		Str("component", component).
		Msgf(format, args...)

	os.Exit(1)
}

// Infof logs a non-fatal, structured informational event, used for the
// attach/ready milestones emitted during device setup.
func Infof(component, format string, args ...interface{}) {
	Log.Info().
		Str("component", component).
		Msgf(format, args...)
}
