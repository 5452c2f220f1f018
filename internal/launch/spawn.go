package launch

import (
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
)

// SpawnReplacer runs the server as a child process instead of replacing the
// launcher. The child inherits stdio, receives the launcher's signals, and
// the launcher exits with the child's status. Unlike exec mode, the server
// has a different PID from the launcher.
type SpawnReplacer struct {
	Logger *slog.Logger
	// Exit is called with the child's exit status.
	Exit func(int)
	// Signals overrides the forwarded signal set.
	Signals []os.Signal

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// Replace returns an error if the child could not be started. Otherwise it
// waits for the child and calls Exit, returning nil only if Exit returns.
func (r *SpawnReplacer) Replace(path string, argv []string, env []string) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cmd := &exec.Cmd{
		Path:   path,
		Args:   argv,
		Env:    env,
		Stdin:  orFile(r.Stdin, os.Stdin),
		Stdout: orFile(r.Stdout, os.Stdout),
		Stderr: orFile(r.Stderr, os.Stderr),
	}

	sigs := r.Signals
	if sigs == nil {
		sigs = forwardedSignals
	}
	ch := make(chan os.Signal, 16)
	signal.Notify(ch, sigs...)
	defer signal.Stop(ch)

	if err := cmd.Start(); err != nil {
		return err
	}
	logger.Info("server started as child", "pid", cmd.Process.Pid)

	done := make(chan struct{})
	go forwardSignals(logger, ch, cmd.Process, done)

	err := cmd.Wait()
	close(done)

	code := exitStatus(err)
	logger.Info("server exited", "pid", cmd.Process.Pid, "status", code)

	exit := r.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(code)
	return nil
}

type signaler interface {
	Signal(os.Signal) error
}

// forwardSignals relays every signal received on ch to p until done closes.
func forwardSignals(logger *slog.Logger, ch <-chan os.Signal, p signaler, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case sig := <-ch:
			if err := p.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
				logger.Warn("forwarding signal failed", "signal", sig.String(), "error", err)
			}
		}
	}
}

// exitStatus converts a Wait error into an exit status. A child killed by
// signal N yields 128+N.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return 1
	}
	if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	if code := ee.ExitCode(); code >= 0 {
		return code
	}
	return 1
}

func orFile(f, fallback *os.File) *os.File {
	if f != nil {
		return f
	}
	return fallback
}
