// package shared defines helpers used across the bot: logging, ids, config, persistence
package shared

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a [log.Logger] writing to w, with timestamps and caller
// reporting enabled. The writer defaults to [os.Stderr].
//
// Per-event loggers are derived from this root via [WithLogger] so every
// line of one resolution carries the same trace id.
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}

	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    true,
		Prefix:          "chorus",
	})
}

// WithLogger creates a child [log.Logger] carrying the given key-value pairs on every entry.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID returns a fresh v4 UUID string, used for trace ids and history row ids.
func GenerateID() string {
	return uuid.New().String()
}
