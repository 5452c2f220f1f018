//go:build unix

package launch

import (
	"os"

	"golang.org/x/sys/unix"
)

// Signals the worker-pool server reacts to: shutdown, reload, log reopening,
// binary upgrade and worker count changes.
var forwardedSignals = []os.Signal{
	unix.SIGINT,
	unix.SIGTERM,
	unix.SIGQUIT,
	unix.SIGHUP,
	unix.SIGUSR1,
	unix.SIGUSR2,
	unix.SIGTTIN,
	unix.SIGTTOU,
	unix.SIGWINCH,
}
