// Package logging sets up the launcher's slog logger.
//
// Interactive runs log text to stderr. When stderr is not a terminal and
// journald is listening, records go to the journal as structured entries so
// the launcher's lines sit next to the server's under the same unit.
package logging

import (
	"log/slog"
	"os"

	"github.com/coreos/go-systemd/v22/journal"
	"golang.org/x/term"
)

// EnvDebug enables debug logging when non-empty.
const EnvDebug = "LAUNCHPAD_DEBUG"

// Options controls handler selection.
type Options struct {
	Level slog.Leveler
	// Journal forces the journald handler on or off. Nil means detect.
	Journal *bool
}

// New returns a logger writing to w.
func New(w *os.File, opts Options) *slog.Logger {
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}

	var useJournal bool
	if opts.Journal != nil {
		useJournal = *opts.Journal
	} else {
		useJournal = !term.IsTerminal(int(w.Fd())) && journal.Enabled()
	}

	if useJournal {
		return slog.New(NewJournalHandler(level))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Setup configures the default logger from the environment and returns it.
func Setup() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv(EnvDebug) != "" {
		level = slog.LevelDebug
	}
	logger := New(os.Stderr, Options{Level: level})
	slog.SetDefault(logger)
	return logger
}
