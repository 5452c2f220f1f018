// Package config holds the launcher's process-wide configuration: what to
// sweep before startup and how to launch the server.
//
// The built-in defaults are the contract. Environment variables and flags can
// override them, with the precedence flag > LAUNCHPAD_* variable > default.
package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
)

// Built-in defaults.
const (
	DefaultRoot    = "."
	DefaultPattern = "*.pyc"
	DefaultServer  = "gunicorn"
	DefaultWorkers = 4
	DefaultAdapter = "uvicorn.workers.UvicornWorker"
	DefaultBind    = "0.0.0.0:8000"
	DefaultApp     = "main:app"
)

// Mode selects how the launcher hands off to the server.
type Mode string

const (
	// ModeExec replaces the launcher's process image with the server.
	ModeExec Mode = "exec"
	// ModeSpawn runs the server as a child, forwards signals to it and exits
	// with its status. The server gets a new PID.
	ModeSpawn Mode = "spawn"
)

// SweepTarget identifies the transient artifacts removed before launch.
type SweepTarget struct {
	Root    string
	Pattern string
}

// Validate checks that the pattern is well formed.
func (t SweepTarget) Validate() error {
	if t.Root == "" {
		return errors.New("sweep root is empty")
	}
	if t.Pattern == "" {
		return errors.New("sweep pattern is empty")
	}
	if _, err := filepath.Match(t.Pattern, ""); err != nil {
		return fmt.Errorf("sweep pattern %q: %w", t.Pattern, err)
	}
	return nil
}

// LaunchSpec describes the worker-pool server invocation.
type LaunchSpec struct {
	// Server is the server executable, either a path or a name looked up on PATH.
	Server string
	// Workers is the size of the server's worker pool.
	Workers int
	// Adapter names the worker class bridging workers to the application.
	Adapter string
	// Bind is the host:port the server listens on.
	Bind string
	// App is the application target, e.g. "main:app". It is resolved by the
	// server and passed through untouched.
	App string
	// Mode selects exec (default) or spawn hand-off.
	Mode Mode
}

// Validate enforces the LaunchSpec invariants.
func (s LaunchSpec) Validate() error {
	if s.Server == "" {
		return errors.New("server executable is empty")
	}
	if s.Workers < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", s.Workers)
	}
	if s.Adapter == "" {
		return errors.New("worker class is empty")
	}
	if s.App == "" {
		return errors.New("application target is empty")
	}
	if err := ValidateBind(s.Bind); err != nil {
		return err
	}
	switch s.Mode {
	case ModeExec, ModeSpawn:
	default:
		return fmt.Errorf("unknown launch mode %q (want %s or %s)", s.Mode, ModeExec, ModeSpawn)
	}
	return nil
}

// ValidateBind reports whether addr is a host:port pair with a numeric port.
// An empty host (":8000") means all interfaces and is accepted.
func ValidateBind(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("bind address %q: %w", addr, err)
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return fmt.Errorf("bind address %q: invalid port %q", addr, port)
	}
	return nil
}

// Config is the whole launcher configuration. It is built once at startup and
// never mutated.
type Config struct {
	Sweep  SweepTarget
	Launch LaunchSpec
	// DryRun sweeps, prints the server command and exits without launching.
	DryRun bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Sweep: SweepTarget{
			Root:    DefaultRoot,
			Pattern: DefaultPattern,
		},
		Launch: LaunchSpec{
			Server:  DefaultServer,
			Workers: DefaultWorkers,
			Adapter: DefaultAdapter,
			Bind:    DefaultBind,
			App:     DefaultApp,
			Mode:    ModeExec,
		},
	}
}

// Validate checks both halves of the configuration.
func (c Config) Validate() error {
	if err := c.Sweep.Validate(); err != nil {
		return err
	}
	return c.Launch.Validate()
}

// Environment variables consulted by Load.
const (
	EnvRoot    = "LAUNCHPAD_ROOT"
	EnvPattern = "LAUNCHPAD_PATTERN"
	EnvServer  = "LAUNCHPAD_SERVER"
	EnvWorkers = "LAUNCHPAD_WORKERS"
	EnvAdapter = "LAUNCHPAD_WORKER_CLASS"
	EnvBind    = "LAUNCHPAD_BIND"
	EnvApp     = "LAUNCHPAD_APP"
	EnvMode    = "LAUNCHPAD_MODE"
)

// ErrHelp is returned by Load when -h/--help was requested.
var ErrHelp = flag.ErrHelp

// Load builds the configuration from args (without the program name) and the
// environment. With no args and an empty environment it returns Default().
func Load(args []string, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	var (
		cfg  Config
		mode string
	)
	fs, envErr := newFlagSet(&cfg, &mode, getenv)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	// A malformed environment default only matters when no flag replaced it.
	if envErr != nil && !fs.Changed("workers") {
		return Config{}, envErr
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	cfg.Launch.Mode = Mode(mode)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Usage returns the flag help text, showing the built-in defaults.
func Usage() string {
	var (
		cfg  Config
		mode string
		b    strings.Builder
	)
	fs, _ := newFlagSet(&cfg, &mode, func(string) string { return "" })
	fs.SetOutput(&b)
	fs.PrintDefaults()
	return b.String()
}

// newFlagSet always returns a usable flag set. The error reports a
// LAUNCHPAD_WORKERS value that is not an integer; the built-in default is
// used in its place.
func newFlagSet(cfg *Config, mode *string, getenv func(string) string) (*flag.FlagSet, error) {
	def := Default()

	var envErr error
	workers := def.Launch.Workers
	if v := getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			envErr = fmt.Errorf("%s=%q: not an integer", EnvWorkers, v)
		} else {
			workers = n
		}
	}

	fs := flag.NewFlagSet("launchpad", flag.ContinueOnError)
	fs.SortFlags = false
	fs.StringVar(&cfg.Sweep.Root, "root", envOr(getenv, EnvRoot, def.Sweep.Root), "Directory swept for stale artifacts")
	fs.StringVar(&cfg.Sweep.Pattern, "pattern", envOr(getenv, EnvPattern, def.Sweep.Pattern), "File name pattern of stale artifacts")
	fs.StringVar(&cfg.Launch.Server, "server", envOr(getenv, EnvServer, def.Launch.Server), "Server executable (path or name on PATH)")
	fs.IntVarP(&cfg.Launch.Workers, "workers", "w", workers, "Number of server workers")
	fs.StringVarP(&cfg.Launch.Adapter, "worker-class", "k", envOr(getenv, EnvAdapter, def.Launch.Adapter), "Server worker class")
	fs.StringVarP(&cfg.Launch.Bind, "bind", "b", envOr(getenv, EnvBind, def.Launch.Bind), "Address the server binds (host:port)")
	fs.StringVar(&cfg.Launch.App, "app", envOr(getenv, EnvApp, def.Launch.App), "Application target passed to the server")
	fs.StringVar(mode, "mode", envOr(getenv, EnvMode, string(def.Launch.Mode)), "Hand-off mode: exec, spawn")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Sweep and print the server command without launching")
	return fs, envErr
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}
