// launchpad - start the application server from a clean working directory
//
// Usage:
//
//	launchpad              Remove *.pyc under ., then exec gunicorn
//	launchpad --dry-run    Remove *.pyc and print the server command
//
// With no arguments this is equivalent to removing every *.pyc file below the
// current directory and then running, in place of this process:
//
//	gunicorn -w 4 -k uvicorn.workers.UvicornWorker main:app --bind 0.0.0.0:8000
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mbrock/launchpad/internal/bootstrap"
	"github.com/mbrock/launchpad/internal/config"
	"github.com/mbrock/launchpad/internal/logging"
)

func main() {
	logger := logging.Setup()

	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if errors.Is(err, config.ErrHelp) {
		usage()
		return
	}
	if err != nil {
		fatal("%v", err)
	}

	r := bootstrap.New(logger, os.Stdout)
	if _, err := r.Run(context.Background(), cfg); err != nil {
		fatal("%v", err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `launchpad - sweep stale bytecode, then become the application server

Usage:
  launchpad [flags]

Flags:
%s
Flags default to the matching LAUNCHPAD_* environment variable when set
(LAUNCHPAD_ROOT, LAUNCHPAD_PATTERN, LAUNCHPAD_SERVER, LAUNCHPAD_WORKERS,
LAUNCHPAD_WORKER_CLASS, LAUNCHPAD_BIND, LAUNCHPAD_APP, LAUNCHPAD_MODE).
Set LAUNCHPAD_DEBUG for debug logging.
`, config.Usage())
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
