// Package launch hands the process over to the worker-pool HTTP server.
//
// In exec mode the launcher's process image is replaced: the server keeps the
// launcher's PID and open descriptors, so a supervisor watching that PID ends
// up watching the server. A failed hand-off is fatal and never retried.
package launch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/mbrock/launchpad/internal/config"
)

// Exit statuses used when the hand-off fails, following shell conventions.
const (
	ExitFailure       = 1
	ExitNotExecutable = 126
	ExitNotFound      = 127
)

// Error is a fatal launch failure.
type Error struct {
	Op   string // "validate", "lookup" or "exec"
	Path string
	Argv []string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("launch %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("launch %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode maps the failure onto the launcher's exit status.
func (e *Error) ExitCode() int {
	switch {
	case errors.Is(e.Err, exec.ErrNotFound), errors.Is(e.Err, fs.ErrNotExist):
		return ExitNotFound
	case errors.Is(e.Err, fs.ErrPermission), errors.Is(e.Err, syscall.ENOEXEC):
		return ExitNotExecutable
	default:
		return ExitFailure
	}
}

// Command assembles the server argv:
//
//	<server> -w <workers> -k <adapter> <app> --bind <address>
//
// The app target is passed through unmodified.
func Command(spec config.LaunchSpec) []string {
	return []string{
		spec.Server,
		"-w", strconv.Itoa(spec.Workers),
		"-k", spec.Adapter,
		spec.App,
		"--bind", spec.Bind,
	}
}

// Replacer hands the process over to another program. On success Replace
// does not return.
type Replacer interface {
	Replace(path string, argv []string, env []string) error
}

// Launcher runs the server hand-off.
type Launcher struct {
	Logger *slog.Logger

	// Exec is used in exec mode, Spawn in spawn mode.
	Exec  Replacer
	Spawn Replacer

	// LookPath resolves a bare server name; defaults to exec.LookPath.
	LookPath func(string) (string, error)
	// Environ supplies the server's environment; defaults to os.Environ.
	Environ func() []string
	// Exit terminates the program; defaults to os.Exit.
	Exit   func(int)
	Stderr io.Writer
}

// New returns a Launcher using the platform's process replacement.
func New(logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		Logger: logger,
		Exec:   defaultExecReplacer(logger),
		Spawn:  &SpawnReplacer{Logger: logger, Exit: os.Exit},
		Exit:   os.Exit,
		Stderr: os.Stderr,
	}
}

// Launch replaces the process with the server described by spec. It does
// not return on success. On failure it reports the error and exits non-zero;
// the error is returned only if Exit itself returns.
func (l *Launcher) Launch(spec config.LaunchSpec) error {
	err := l.replace(spec)

	l.Logger.Error("server launch failed", "op", err.Op, "path", err.Path, "error", err.Err)
	if l.Stderr != nil {
		fmt.Fprintf(l.Stderr, "error: %v\n", err)
	}
	exit := l.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(err.ExitCode())
	return err
}

// replace only returns on failure.
func (l *Launcher) replace(spec config.LaunchSpec) *Error {
	argv := Command(spec)
	if err := spec.Validate(); err != nil {
		return &Error{Op: "validate", Argv: argv, Err: err}
	}

	path, err := l.resolve(spec.Server)
	if err != nil {
		return &Error{Op: "lookup", Path: spec.Server, Argv: argv, Err: err}
	}

	r := l.Exec
	if spec.Mode == config.ModeSpawn {
		r = l.Spawn
	}
	if r == nil {
		return &Error{Op: "exec", Path: path, Argv: argv, Err: fmt.Errorf("no replacer for mode %q", spec.Mode)}
	}
	if _, child := r.(*SpawnReplacer); child && spec.Mode == config.ModeExec {
		l.Logger.Warn("process replacement unavailable; running server as a child with a new PID")
	}

	env := os.Environ()
	if l.Environ != nil {
		env = l.Environ()
	}

	l.Logger.Info("launching server",
		"path", path,
		"argv", argv,
		"mode", string(spec.Mode),
		"workers", spec.Workers,
		"bind", spec.Bind,
		"pid", os.Getpid(),
	)
	err = r.Replace(path, argv, env)
	if err == nil {
		err = errors.New("hand-off returned without an error")
	}
	return &Error{Op: "exec", Path: path, Argv: argv, Err: err}
}

// resolve finds the server executable. Names containing a path separator
// are checked in place; bare names are searched on PATH. Relative PATH
// entries are honoured the way a shell honours them.
func (l *Launcher) resolve(server string) (string, error) {
	lookPath := l.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(server)
	if err != nil && path != "" && errors.Is(err, exec.ErrDot) {
		l.Logger.Debug("server found via relative PATH entry", "path", path)
		return path, nil
	}
	if err != nil {
		var ee *exec.Error
		if errors.As(err, &ee) {
			return "", ee.Err
		}
		return "", err
	}
	return path, nil
}
