package main

import (
	"context"
	"log/slog"
	"sync"

	"warnboard/internal/core/config"
	"warnboard/internal/core/ports"
	"warnboard/internal/core/watcher"
	"warnboard/internal/data/importer"
	"warnboard/internal/data/queue"
)

type inboxRuntime struct {
	watcher *watcher.Watcher
	queue   *queue.MemoryQueue
	wg      sync.WaitGroup
}

// startInbox watches the configured inbox directories and imports what lands there.
// It returns nil when no directory is configured.
func startInbox(ctx context.Context, cfg config.Inbox, target ports.JobImporter) (*inboxRuntime, error) {
	if len(cfg.Dirs) == 0 {
		return nil, nil
	}
	q := queue.NewMemoryQueue(cfg.QueueCapacity)
	worker := importer.NewInbox(q, target)

	w, err := watcher.NewWatcher(cfg.Debounce, cfg.Exclude, worker.Submit)
	if err != nil {
		_ = q.Close()
		return nil, err
	}
	worker.OnImportFailed(w.Forget)
	if err := w.Watch(cfg.Dirs); err != nil {
		_ = w.Close()
		_ = q.Close()
		return nil, err
	}

	rt := &inboxRuntime{watcher: w, queue: q}
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		if err := worker.Run(ctx); err != nil {
			slog.Error("inbox worker stopped", "error", err)
		}
	}()
	if cfg.ImportExisting {
		w.EnqueueExisting(cfg.Dirs)
	}
	slog.Info("inbox watching", "dirs", cfg.Dirs)
	return rt, nil
}

func (r *inboxRuntime) Reload(cfg config.Inbox) {
	if r == nil {
		return
	}
	r.watcher.SetDebounce(cfg.Debounce)
}

func (r *inboxRuntime) Close() {
	if r == nil {
		return
	}
	if err := r.watcher.Close(); err != nil {
		slog.Warn("close inbox watcher", "error", err)
	}
	_ = r.queue.Close()
	r.wg.Wait()
}
