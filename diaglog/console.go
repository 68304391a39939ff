package diaglog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// NewTranscript returns a logger that echoes what sessions do to w, for
// following a test run. A terminal gets human-friendly output; anything else
// gets JSON lines.
func NewTranscript(w io.Writer) zerolog.Logger {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339}
	}

	return zerolog.New(zerolog.SyncWriter(w)).With().Timestamp().Logger()
}

// Quiet returns a transcript logger that logs nothing.
func Quiet() zerolog.Logger {
	return zerolog.Nop()
}
