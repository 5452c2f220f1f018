// Package sweep removes stale compiled artifacts before the server starts.
//
// A sweep is best-effort: failures to remove individual files are logged and
// counted, never returned. A missing root is an empty sweep.
package sweep

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mbrock/launchpad/internal/config"
)

// DefaultConcurrency bounds the number of in-flight removals.
const DefaultConcurrency = 8

// Failure records one file that could not be removed.
type Failure struct {
	Path string
	Err  error
}

// Result summarizes a sweep. It exists for observability only.
type Result struct {
	Removed  int
	Failed   int
	Failures []Failure
}

// Sweeper removes files matching a SweepTarget.
type Sweeper struct {
	Logger      *slog.Logger
	Concurrency int

	// remove is os.Remove unless replaced by tests.
	remove func(string) error
}

// New returns a Sweeper logging to logger.
func New(logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{Logger: logger, Concurrency: DefaultConcurrency, remove: os.Remove}
}

// Sweep walks target.Root and removes every regular file whose base name
// matches target.Pattern. All matches are visited before Sweep returns; the
// sweep is short and bounded by filesystem latency, so ctx does not cut it off.
func (s *Sweeper) Sweep(ctx context.Context, target config.SweepTarget) Result {
	_ = ctx
	log := s.Logger.With("root", target.Root, "pattern", target.Pattern)

	info, err := os.Stat(target.Root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debug("sweep root does not exist")
		return Result{}
	case err != nil:
		log.Warn("cannot stat sweep root", "error", err)
		return Result{}
	case !info.IsDir():
		log.Warn("sweep root is not a directory")
		return Result{}
	}

	matches := s.collect(log, target)

	var (
		mu  sync.Mutex
		res Result
		g   errgroup.Group
	)
	g.SetLimit(max(s.Concurrency, 1))
	for _, path := range matches {
		g.Go(func() error {
			err := s.remove(path)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				res.Removed++
				log.Debug("removed", "path", path)
			case errors.Is(err, fs.ErrNotExist):
				// Already gone; same as never having matched.
			default:
				res.Failed++
				res.Failures = append(res.Failures, Failure{Path: path, Err: err})
				log.Warn("remove failed", "path", path, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info("swept stale artifacts", "removed", res.Removed, "failed", res.Failed)
	return res
}

// collect returns the paths of all matching regular files under the root.
// Unreadable directories are logged and skipped.
func (s *Sweeper) collect(log *slog.Logger, target config.SweepTarget) []string {
	var matches []string
	_ = filepath.WalkDir(target.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path != target.Root {
				log.Warn("skipping unreadable path", "path", path, "error", err)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ok, _ := filepath.Match(target.Pattern, d.Name()); ok {
			matches = append(matches, path)
		}
		return nil
	})
	return matches
}
