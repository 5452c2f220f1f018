//go:build !unix

package launch

import (
	"log/slog"
	"os"
)

// ExecSupported reports whether exec mode keeps the launcher's PID.
const ExecSupported = false

// Without execve the server runs as a child and gets its own PID.
func defaultExecReplacer(logger *slog.Logger) Replacer {
	return &SpawnReplacer{Logger: logger, Exit: os.Exit}
}
