package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Snapshot holds the RuleSet currently in effect. Each RuleSet handed out is
// immutable; Store replaces the whole value.
type Snapshot struct {
	current atomic.Pointer[RuleSet]
}

// NewSnapshot returns a Snapshot serving rs.
func NewSnapshot(rs *RuleSet) *Snapshot {
	s := &Snapshot{}
	s.current.Store(rs)
	return s
}

// RuleSet returns the RuleSet in effect.
func (s *Snapshot) RuleSet() *RuleSet {
	return s.current.Load()
}

// Store makes rs the RuleSet in effect.
func (s *Snapshot) Store(rs *RuleSet) {
	s.current.Store(rs)
}

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Path is the configuration file to watch.
	Path string
	// Snapshot receives every successfully reloaded RuleSet.
	Snapshot *Snapshot
	// Logger for reload events (nil = no logging).
	Logger *slog.Logger
	// Debounce overrides DefaultDebounce.
	Debounce time.Duration
	// OnReload is called after every reload attempt with its error, if any.
	OnReload func(error)
}

// Watcher reloads a configuration file when it changes on disk. A file that
// fails to load leaves the previous RuleSet in effect.
type Watcher struct {
	path     string
	snapshot *Snapshot
	logger   *slog.Logger
	debounce time.Duration
	onReload func(error)
	lastMod  time.Time
}

// NewWatcher creates a Watcher. Call Run to start watching.
func NewWatcher(opts WatcherOptions) (*Watcher, error) {
	if opts.Snapshot == nil {
		return nil, fmt.Errorf("watcher requires a snapshot")
	}
	abs, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	w := &Watcher{
		path:     abs,
		snapshot: opts.Snapshot,
		logger:   opts.Logger,
		debounce: opts.Debounce,
		onReload: opts.OnReload,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if info, err := os.Stat(abs); err == nil {
		w.lastMod = info.ModTime()
	}
	return w, nil
}

// Run watches the file until ctx is done.
//
// The parent directory is watched rather than the file so that editors which
// save by renaming a temporary file are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.log(slog.LevelInfo, "watching configuration for changes", "path", w.path)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.isConfigEvent(event) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log(slog.LevelWarn, "config watcher error", "error", err)

		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) isConfigEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (w *Watcher) reload() {
	info, err := os.Stat(w.path)
	if err != nil {
		// Mid-rename; the Create that follows triggers another reload.
		return
	}
	if !info.ModTime().After(w.lastMod) {
		return
	}
	w.lastMod = info.ModTime()

	rs, err := LoadFromFile(w.path)
	if err != nil {
		w.log(slog.LevelError, "configuration reload failed, keeping previous rules", "path", w.path, "error", err)
		w.notify(err)
		return
	}

	w.snapshot.Store(rs)
	w.log(slog.LevelInfo, "configuration reloaded",
		"path", w.path,
		"routes", len(rs.Routes()),
	)
	w.notify(nil)
}

func (w *Watcher) notify(err error) {
	if w.onReload != nil {
		w.onReload(err)
	}
}

func (w *Watcher) log(level slog.Level, msg string, args ...any) {
	if w.logger != nil {
		w.logger.Log(context.Background(), level, msg, args...)
	}
}
