// Package watch re-runs the check when project source files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/dkoosis/svcheck/internal/controller"
)

// DefaultIgnore lists directory names never watched.
var DefaultIgnore = []string{".git", "node_modules", ".svelte-kit", ".svcheck", "dist", "build"}

// DefaultMinInterval is the shortest gap between two triggered runs.
const DefaultMinInterval = time.Second

// DefaultDebounce coalesces bursts of change events, e.g. a save-all.
const DefaultDebounce = 300 * time.Millisecond

// Trigger starts a run. *controller.Controller implements it.
type Trigger interface {
	Start(ctx context.Context) error
}

// Options configures a Watcher.
type Options struct {
	Extensions  []string // only these suffixes trigger a run; empty means all
	Debounce    time.Duration
	MinInterval time.Duration
	Ignore      []string // directory names or glob patterns
	Logger      *slog.Logger
}

// Watcher watches a project tree and starts a run after changes settle.
// Changes seen while a run is active trigger one more run once Idle is
// called.
type Watcher struct {
	root    string
	trigger Trigger
	opts    Options
	log     *slog.Logger
	fsw     *fsnotify.Watcher
	limiter *rate.Limiter
	kick    chan struct{}
	pending atomic.Bool
}

// New watches root and every directory below it that is not ignored.
func New(root string, trigger Trigger, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.Ignore == nil {
		opts.Ignore = DefaultIgnore
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	w := &Watcher{
		root:    root,
		trigger: trigger,
		opts:    opts,
		log:     log,
		fsw:     fsw,
		limiter: rate.NewLimiter(rate.Every(opts.MinInterval), 1),
		kick:    make(chan struct{}, 1),
	}
	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("watching %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Idle tells the watcher the last run finished. Wire it to the
// controller's completion callback.
func (w *Watcher) Idle() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Run processes events until ctx is done. It closes the underlying watcher
// on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && isDir(ev.Name) && !w.ignored(ev.Name) {
				if err := w.addRecursive(ev.Name); err != nil {
					w.log.Warn("watching new directory", "err", err)
				}
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("change", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(w.opts.Debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher", "err", err)
		case <-timer.C:
			w.fire(ctx, timer)
		case <-w.kick:
			if w.pending.Load() {
				w.fire(ctx, timer)
			}
		}
	}
}

func (w *Watcher) fire(ctx context.Context, timer *time.Timer) {
	if !w.limiter.Allow() {
		timer.Reset(w.opts.MinInterval)
		return
	}
	err := w.trigger.Start(ctx)
	switch {
	case errors.Is(err, controller.ErrRunInProgress):
		w.pending.Store(true)
		w.log.Debug("run in progress, re-running when it finishes")
	case err != nil:
		w.log.Warn("starting run", "err", err)
	default:
		w.pending.Store(false)
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	if w.ignored(ev.Name) {
		return false
	}
	if len(w.opts.Extensions) == 0 {
		return true
	}
	return slices.Contains(w.opts.Extensions, filepath.Ext(ev.Name))
}

// ignored reports whether any path element below root matches an ignore
// pattern.
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return true
	}
	for _, elem := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, pattern := range w.opts.Ignore {
			if elem == pattern {
				return true
			}
			if matched, _ := filepath.Match(pattern, elem); matched {
				return true
			}
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
