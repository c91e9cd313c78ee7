package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"warnboard/internal/shared/observability"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a configuration file when it changes on disk. Reloads run on the
// watcher goroutine, so onReload is never called concurrently. A file that fails to
// load is logged and the previous configuration stays in effect.
type Watcher struct {
	path     string
	onReload func(*Config)
	debounce time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatcher(path string, onReload func(*Config)) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		onReload: onReload,
		debounce: 100 * time.Millisecond,
	}
}

// Start watches until Stop is called or ctx ends.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors replace files on save; watching the directory still sees the new file.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return err
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx, fsw)
	slog.Info("starting config watcher", "path", w.path)
	return nil
}

func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.done)
	defer fsw.Close()

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				fire = time.After(w.debounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	return filepath.Clean(event.Name) == w.path && event.Op&(fsnotify.Write|fsnotify.Create) != 0
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Error("config reload rejected, keeping previous settings", "path", w.path, "error", err)
		return
	}
	observability.ConfigReloadsTotal.Inc()
	slog.Info("config reloaded", "path", w.path)
	if w.onReload != nil {
		w.onReload(cfg)
	}
}
