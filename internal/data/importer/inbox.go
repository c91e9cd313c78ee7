package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"warnboard/internal/core/model"
	"warnboard/internal/core/ports"
	"warnboard/internal/shared/observability"
)

const (
	maxMergedBatches   = 8
	inboxFlushInterval = 250 * time.Millisecond
)

// Inbox imports snapshot files handed over by the inbox watcher.
type Inbox struct {
	queue    ports.ImportQueue
	importer ports.JobImporter
	onFailed func([]string)
}

func NewInbox(queue ports.ImportQueue, importer ports.JobImporter) *Inbox {
	return &Inbox{queue: queue, importer: importer}
}

// OnImportFailed registers fn to receive the paths of batches whose import failed.
// It must be called before Run.
func (in *Inbox) OnImportFailed(fn func(paths []string)) {
	in.onFailed = fn
}

// Submit queues paths for import and reports whether they were accepted. It never
// blocks; a full queue drops the batch.
func (in *Inbox) Submit(paths []string) bool {
	if len(paths) == 0 {
		return true
	}
	batch := ports.ImportBatch{Paths: append([]string(nil), paths...), Queued: time.Now()}
	if in.queue.Enqueue(batch) == ports.EnqueueDropped {
		observability.InboxDroppedBatchesTotal.Inc()
		slog.Warn("inbox queue full, dropping batch", "files", len(paths), "queued", in.queue.Len())
		return false
	}
	return true
}

// Run drains the queue until ctx ends or the queue is closed and empty.
func (in *Inbox) Run(ctx context.Context) error {
	for {
		batches, err := in.queue.DequeueBatch(ctx, maxMergedBatches, inboxFlushInterval)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			slog.Warn("inbox dequeue failed", "error", err)
			continue
		}
		if len(batches) > 0 {
			in.importBatches(ctx, batches)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

func (in *Inbox) importBatches(ctx context.Context, batches []ports.ImportBatch) {
	paths := mergePaths(batches)
	var (
		jobs    []model.Job
		decoded []string
	)
	for _, path := range paths {
		fileJobs, err := DecodeFile(path)
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("inbox file vanished before import", "path", path)
			continue
		}
		if err != nil {
			observability.InboxImportFailuresTotal.Inc()
			slog.Warn("inbox file rejected", "path", path, "error", err)
			continue
		}
		jobs = append(jobs, fileJobs...)
		decoded = append(decoded, path)
	}
	if len(jobs) == 0 {
		return
	}

	res, err := in.importer.Import(ctx, Merge(jobs))
	if err != nil {
		observability.InboxImportFailuresTotal.Inc()
		slog.Warn("inbox import failed", "files", len(paths), "error", err)
		if in.onFailed != nil {
			in.onFailed(decoded)
		}
		return
	}
	slog.Info("inbox import finished",
		"files", len(paths),
		"jobs", len(res.Jobs),
		"builds", res.Builds,
		"inconsistent", res.Inconsistent,
		"waited", time.Since(batches[0].Queued).Round(time.Millisecond),
	)
}

func mergePaths(batches []ports.ImportBatch) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, b := range batches {
		for _, p := range b.Paths {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
