package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbrock/launchpad/internal/config"
	"github.com/mbrock/launchpad/internal/launch"
	"github.com/mbrock/launchpad/internal/sweep"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// observingLauncher checks the working tree at hand-off time, then delegates.
type observingLauncher struct {
	root string
	seen []string
	next *launch.Launcher
}

func (o *observingLauncher) Launch(spec config.LaunchSpec) error {
	entries, _ := os.ReadDir(o.root)
	for _, e := range entries {
		o.seen = append(o.seen, e.Name())
	}
	return o.next.Launch(spec)
}

func TestRun_SweepThenHandOff(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.pyc", "b.pyc", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(name), 0o644))
	}

	fake := &launch.FakeReplacer{}
	exitCalled := false
	l := &launch.Launcher{
		Logger:   quietLogger(),
		Exec:     fake,
		LookPath: func(name string) (string, error) { return "/srv/venv/bin/" + name, nil },
		Environ:  func() []string { return nil },
		Exit:     func(int) { exitCalled = true },
	}
	obs := &observingLauncher{root: root, next: l}

	cfg := config.Default()
	cfg.Sweep.Root = root
	r := &Runner{Logger: quietLogger(), Sweeper: sweep.New(quietLogger()), Launcher: obs, Stdout: io.Discard}

	diverged := launch.Diverges(func() { _, _ = r.Run(context.Background(), cfg) })

	require.True(t, diverged, "a successful hand-off must not return")
	assert.False(t, exitCalled)
	assert.Equal(t, []string{"c.txt"}, obs.seen, "sweep must finish before launch")

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{
		"gunicorn", "-w", "4", "-k", "uvicorn.workers.UvicornWorker", "main:app", "--bind", "0.0.0.0:8000",
	}, calls[0].Argv)

	data, err := os.ReadFile(filepath.Join(root, "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "c.txt", string(data))
}

type stubSweeper struct{ res sweep.Result }

func (s stubSweeper) Sweep(context.Context, config.SweepTarget) sweep.Result { return s.res }

type stubLauncher struct {
	called bool
	err    error
}

func (s *stubLauncher) Launch(config.LaunchSpec) error {
	s.called = true
	return s.err
}

func TestRun_SweepFailuresDoNotBlockLaunch(t *testing.T) {
	failed := sweep.Result{Removed: 1, Failed: 2, Failures: []sweep.Failure{
		{Path: "x.pyc", Err: os.ErrPermission},
		{Path: "y.pyc", Err: os.ErrPermission},
	}}
	l := &stubLauncher{err: errors.New("exec failed")}
	r := &Runner{Logger: quietLogger(), Sweeper: stubSweeper{failed}, Launcher: l, Stdout: io.Discard}

	res, err := r.Run(context.Background(), config.Default())

	assert.True(t, l.called)
	assert.Equal(t, failed, res)
	assert.EqualError(t, err, "exec failed", "launch errors are reported as-is, never mixed with sweep results")
}

func TestRun_DryRun(t *testing.T) {
	l := &stubLauncher{}
	var out bytes.Buffer
	r := &Runner{Logger: quietLogger(), Sweeper: stubSweeper{}, Launcher: l, Stdout: &out}

	cfg := config.Default()
	cfg.DryRun = true
	_, err := r.Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.False(t, l.called)
	assert.Equal(t, "gunicorn -w 4 -k uvicorn.workers.UvicornWorker main:app --bind 0.0.0.0:8000\n", out.String())
}

func TestShellJoin(t *testing.T) {
	assert.Equal(t, "gunicorn --bind '[::]:8000' 'it'\\''s' ''",
		ShellJoin([]string{"gunicorn", "--bind", "[::]:8000", "it's", ""}))
}
