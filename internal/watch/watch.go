// Package watch re-runs a build whenever Markdown sources in a directory change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/fulmenhq/md2tex/pkg/logger"
	"github.com/fulmenhq/md2tex/pkg/work"
	"golang.org/x/sync/errgroup"
)

// DefaultDebounce coalesces editor save bursts into one rebuild.
const DefaultDebounce = 300 * time.Millisecond

// RebuildFunc performs one complete build pass.
type RebuildFunc func(ctx context.Context) error

// Config configures a Watcher
type Config struct {
	Dir      string
	Debounce time.Duration
	Rebuild  RebuildFunc
}

// Watcher monitors one directory (non-recursively) and triggers debounced rebuilds.
type Watcher struct {
	dir      string
	debounce time.Duration
	rebuild  RebuildFunc
	watcher  *fsnotify.Watcher
	triggers chan struct{}
	runs     atomic.Int64
}

// New starts watching cfg.Dir. Events are buffered until Run is called.
func New(cfg Config) (*Watcher, error) {
	if cfg.Rebuild == nil {
		return nil, errors.New("rebuild function is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{
		dir:      dir,
		debounce: cfg.Debounce,
		rebuild:  cfg.Rebuild,
		watcher:  fw,
		triggers: make(chan struct{}, 1),
	}, nil
}

// Runs returns how many rebuilds have completed.
func (w *Watcher) Runs() int64 {
	return w.runs.Load()
}

// Run blocks until ctx is cancelled or the underlying watcher fails. Rebuild
// errors are logged and do not stop the loop. Cancellation returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()

	logger.Info("watching for changes", logger.String("dir", w.dir), logger.Duration("debounce", w.debounce))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.watchLoop(gctx) })
	g.Go(func() error { return w.rebuildLoop(gctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Relevant reports whether a change to path should trigger a rebuild. Only
// Markdown sources count; the registry, artifacts and hidden files do not.
func Relevant(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return filepath.Ext(base) == work.SourceExt
}

func (w *Watcher) watchLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("file watcher closed")
			}
			if !Relevant(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Trace("source change detected", logger.String("file", event.Name), logger.String("op", event.Op.String()))
			w.trigger()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("file watcher closed")
			}
			logger.Warn("file watcher error", logger.Err(err))
		}
	}
}

func (w *Watcher) rebuildLoop(ctx context.Context) error {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.triggers:
			timer.Reset(w.debounce)
		case <-timer.C:
			start := time.Now()
			if err := w.rebuild(ctx); err != nil {
				logger.Error("rebuild failed", logger.Err(err))
			} else {
				logger.Debug("rebuild finished", logger.Duration("elapsed", time.Since(start)))
			}
			w.runs.Add(1)
		}
	}
}

func (w *Watcher) trigger() {
	select {
	case w.triggers <- struct{}{}:
	default:
	}
}
