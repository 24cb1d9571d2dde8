// Package logging sets up the shared zerolog logger used by both
// binaries, and the gateway's tiny Prometheus metric set.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger for a node. level follows zerolog's string
// names ("debug", "info", "warn", "error"); an unrecognised or empty
// level defaults to Info, matching the teacher's default-verbose
// stderr logging.
func New(node string, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	var w io.Writer = os.Stderr
	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("node", node).
		Logger()
}

// init sets the global timestamp format once; zerolog defaults to Unix
// epoch millis which is compact for on-device logs but hard to read
// when tailing locally.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
