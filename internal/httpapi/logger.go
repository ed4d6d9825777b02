package httpapi

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns the process logger writing JSON lines to stdout.
// Unknown levels fall back to info so a typo never silences the editor.
func NewLogger(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return newLogger(os.Stdout, level)
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Str("service", "topology-editor").
		Logger()
}

func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil || level == "" || l == zerolog.NoLevel || l == zerolog.Disabled {
		return zerolog.InfoLevel
	}
	return l
}
