// Package bootstrap runs the startup sequence: sweep stale artifacts, then
// hand the process over to the server.
//
// The two phases have separate outcomes. The sweep yields a sweep.Result and
// cannot fail the run; the launch either never returns or ends the program.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mbrock/launchpad/internal/config"
	"github.com/mbrock/launchpad/internal/launch"
	"github.com/mbrock/launchpad/internal/sweep"
)

// Sweeper is phase one.
type Sweeper interface {
	Sweep(ctx context.Context, target config.SweepTarget) sweep.Result
}

// Launcher is phase two. Launch does not return on success.
type Launcher interface {
	Launch(spec config.LaunchSpec) error
}

// Runner wires the two phases together.
type Runner struct {
	Logger   *slog.Logger
	Sweeper  Sweeper
	Launcher Launcher
	// Stdout receives the server command in dry-run mode.
	Stdout io.Writer
}

// New returns a Runner using the real sweeper and launcher.
func New(logger *slog.Logger, stdout io.Writer) *Runner {
	return &Runner{
		Logger:   logger,
		Sweeper:  sweep.New(logger),
		Launcher: launch.New(logger),
		Stdout:   stdout,
	}
}

// Run sweeps cfg.Sweep to completion and then launches cfg.Launch. It only
// returns in dry-run mode, or if the launcher's exit hook returns.
func (r *Runner) Run(ctx context.Context, cfg config.Config) (sweep.Result, error) {
	res := r.Sweeper.Sweep(ctx, cfg.Sweep)
	if res.Failed > 0 {
		r.Logger.Warn("continuing despite sweep failures", "failed", res.Failed)
	}

	if cfg.DryRun {
		fmt.Fprintln(r.Stdout, ShellJoin(launch.Command(cfg.Launch)))
		return res, nil
	}
	return res, r.Launcher.Launch(cfg.Launch)
}

// ShellJoin renders argv as a POSIX shell command line.
func ShellJoin(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("@%+=:,./-_", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
