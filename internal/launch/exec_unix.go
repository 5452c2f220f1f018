//go:build unix

package launch

import (
	"log/slog"

	"golang.org/x/sys/unix"
)

// ExecReplacer replaces the process image with execve(2).
type ExecReplacer struct{}

// Replace only returns if the kernel rejected the exec.
func (ExecReplacer) Replace(path string, argv []string, env []string) error {
	return unix.Exec(path, argv, env)
}

func defaultExecReplacer(*slog.Logger) Replacer {
	return ExecReplacer{}
}

// ExecSupported reports whether exec mode keeps the launcher's PID.
const ExecSupported = true
