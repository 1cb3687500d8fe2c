package authroles

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultReloadDelay = 250 * time.Millisecond

// FileWatcher reloads an allowlist file into a Resolver whenever it changes.
// Static entries are merged into every reload.
type FileWatcher struct {
	path     string
	static   *Allowlist
	resolver *Resolver
	delay    time.Duration
	logger   *slog.Logger
}

// FileWatcherOptions configures a FileWatcher.
type FileWatcherOptions struct {
	Path     string
	Static   *Allowlist
	Resolver *Resolver
	Delay    time.Duration
	Logger   *slog.Logger
}

// NewFileWatcher constructs a FileWatcher. Call Load once before Run.
func NewFileWatcher(opts FileWatcherOptions) *FileWatcher {
	delay := opts.Delay
	if delay <= 0 {
		delay = defaultReloadDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FileWatcher{
		path:     filepath.Clean(opts.Path),
		static:   opts.Static,
		resolver: opts.Resolver,
		delay:    delay,
		logger:   logger.With("component", "allowlist_watcher", "path", opts.Path),
	}
}

// Load reads the file and installs the merged allowlist.
func (w *FileWatcher) Load() error {
	lists, err := LoadAllowlistFile(w.path)
	if err != nil {
		return err
	}
	merged := w.static.Merge(lists)
	w.resolver.SetAllowlist(merged)
	w.logger.Info("allowlist loaded", "entries", merged.Size())
	return nil
}

// Run watches the file's directory until ctx ends. Editors often replace files
// by rename, so the directory is watched rather than the file.
func (w *FileWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("fsnotify error", "error", err)
		case <-fire:
			fire = nil
			if err := w.Load(); err != nil {
				// Keep serving the previous allowlist.
				w.logger.Warn("allowlist reload failed", "error", err)
			}
		}
	}
}
