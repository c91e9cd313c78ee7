// Package watcher reports snapshot files that appear or change under inbox directories.
package watcher

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"warnboard/internal/shared/observability"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

var snapshotExtensions = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
}

// Watcher batches snapshot file changes and hands them to a callback.
type Watcher struct {
	fsw      *fsnotify.Watcher
	exclude  []glob.Glob
	onChange func([]string) bool
	notifyMu sync.Mutex

	mu       sync.Mutex
	debounce time.Duration
	pending  map[string]struct{}
	digests  map[string]uint64
	timer    *time.Timer
	closed   bool
}

// NewWatcher calls onChange with batches of changed snapshot paths, at most once per
// debounce interval. Files and directories whose base name matches an exclude pattern
// are ignored. onChange reports whether it accepted the batch; content of a rejected
// batch counts as unseen and is offered again on its next write.
func NewWatcher(debounce time.Duration, exclude []string, onChange func([]string) bool) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	patterns := make([]glob.Glob, 0, len(exclude))
	for _, p := range exclude {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, g)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		exclude:  patterns,
		onChange: onChange,
		debounce: debounce,
		pending:  make(map[string]struct{}),
		digests:  make(map[string]uint64),
	}, nil
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = debounce
}

// Watch creates missing inbox directories and watches them recursively.
func (w *Watcher) Watch(dirs []string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if err := w.walk(dir, w.fsw.Add, nil); err != nil {
			return err
		}
	}
	go w.loop()
	return nil
}

// EnqueueExisting schedules every snapshot file already present under dirs.
func (w *Watcher) EnqueueExisting(dirs []string) {
	for _, dir := range dirs {
		w.scheduleTree(dir)
	}
}

func (w *Watcher) scheduleTree(root string) {
	err := w.walk(root, nil, func(path string) {
		if w.isSnapshot(path) {
			w.schedule(path)
		}
	})
	if err != nil {
		slog.Debug("scan inbox directory", "path", root, "error", err)
	}
}

// walk visits the directories and files below root, skipping excluded directories.
func (w *Watcher) walk(root string, onDir func(string) error, onFile func(string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if onFile != nil {
				onFile(path)
			}
			return nil
		}
		if path != root && w.excluded(path) {
			return filepath.SkipDir
		}
		if onDir != nil {
			return onDir(path)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			observability.InboxEventsTotal.Inc()
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("inbox watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.Forget([]string{event.Name})
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.excluded(event.Name) {
				return
			}
			// Files may land before the new directory is watched.
			if err := w.walk(event.Name, w.fsw.Add, nil); err != nil {
				slog.Warn("failed to watch new inbox directory", "path", event.Name, "error", err)
				return
			}
			w.scheduleTree(event.Name)
			return
		}
	}
	if w.isSnapshot(event.Name) {
		w.schedule(event.Name)
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

// flush hands over the pending paths whose content changed since they were last seen.
// Files that vanished or cannot be read are dropped.
func (w *Watcher) flush() {
	w.mu.Lock()
	candidates := make([]string, 0, len(w.pending))
	for path := range w.pending {
		candidates = append(candidates, path)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()
	sort.Strings(candidates)

	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()

	var changed []string
	digests := make(map[string]uint64, len(candidates))
	for _, path := range candidates {
		digest, err := fileDigest(path)
		if err != nil {
			slog.Debug("skipping unreadable inbox file", "path", path, "error", err)
			continue
		}
		if w.seen(path, digest) {
			continue
		}
		changed = append(changed, path)
		digests[path] = digest
	}
	if len(changed) == 0 {
		return
	}

	// Digests are recorded before the handover so a Forget from the consumer wins.
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	prev := make(map[string]uint64, len(digests))
	for path, digest := range digests {
		if old, ok := w.digests[path]; ok {
			prev[path] = old
		}
		w.digests[path] = digest
	}
	w.mu.Unlock()

	if w.onChange(changed) {
		return
	}
	w.mu.Lock()
	for path := range digests {
		if old, ok := prev[path]; ok {
			w.digests[path] = old
		} else {
			delete(w.digests, path)
		}
	}
	w.mu.Unlock()
}

// seen reports whether digest is the last accepted content of path.
func (w *Watcher) seen(path string, digest uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev, ok := w.digests[path]
	return ok && prev == digest
}

// Forget drops the accepted digests of paths so their current content is offered again.
func (w *Watcher) Forget(paths []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, path := range paths {
		delete(w.digests, path)
	}
}

func fileDigest(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

func (w *Watcher) excluded(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.exclude {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) isSnapshot(path string) bool {
	return snapshotExtensions[strings.ToLower(filepath.Ext(path))] && !w.excluded(path)
}

// Close stops watching. Batches still being debounced are discarded.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}
