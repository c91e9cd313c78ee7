package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, ch <-chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-ch:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func expectNone(t *testing.T, ch <-chan []string, wait time.Duration) {
	t.Helper()
	select {
	case paths := <-ch:
		t.Fatalf("unexpected change batch: %v", paths)
	case <-time.After(wait):
	}
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil)
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNewWatcher_RejectsBadPattern(t *testing.T) {
	if _, err := NewWatcher(time.Millisecond, []string{"["}, func([]string) bool { return true }); err == nil {
		t.Fatal("expected error for invalid exclude pattern")
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	inbox := filepath.Join(tmpDir, "inbox")

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, []string{"*.tmp", ".*"}, func(paths []string) bool {
		changedFiles <- paths
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{inbox}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(inbox); err != nil {
		t.Fatalf("expected inbox directory to be created: %v", err)
	}

	snapshot := filepath.Join(inbox, "core.json")
	if err := os.WriteFile(snapshot, []byte(`{"name":"core"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, snapshot, 2*time.Second)

	for _, name := range []string{"core.json.tmp", ".hidden.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(inbox, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	expectNone(t, changedFiles, 300*time.Millisecond)

	subdir := filepath.Join(inbox, "nightly")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(subdir, "web.yaml")
	if err := os.WriteFile(nested, []byte("name: web\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, nested, 2*time.Second)
}

func TestWatcher_SkipsIdenticalContent(t *testing.T) {
	inbox := t.TempDir()

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, nil, func(paths []string) bool {
		changedFiles <- paths
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch([]string{inbox}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(inbox, "core.json")
	if err := os.WriteFile(path, []byte(`{"name":"core"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, path, 2*time.Second)

	if err := os.WriteFile(path, []byte(`{"name":"core"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	expectNone(t, changedFiles, 300*time.Millisecond)

	if err := os.WriteFile(path, []byte(`{"name":"core","url":"x"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, path, 2*time.Second)
}

func TestWatcher_EnqueueExisting(t *testing.T) {
	inbox := t.TempDir()
	present := filepath.Join(inbox, "old.yml")
	if err := os.WriteFile(present, []byte("name: old\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(inbox, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(inbox, ".git", "config.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(20*time.Millisecond, []string{".*"}, func(paths []string) bool {
		changedFiles <- paths
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	w.EnqueueExisting([]string{inbox})
	select {
	case paths := <-changedFiles:
		if len(paths) != 1 || paths[0] != present {
			t.Fatalf("expected only %s, got %v", present, paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for existing files")
	}
}

func TestWatcher_IsSnapshot(t *testing.T) {
	w, err := NewWatcher(10*time.Millisecond, []string{"*.part"}, func([]string) bool { return true })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	cases := map[string]bool{
		"core.json":      true,
		"CORE.JSON":      true,
		"web.yaml":       true,
		"web.yml":        true,
		"notes.txt":      false,
		"core.json.part": false,
		"Makefile":       false,
	}
	for name, want := range cases {
		if got := w.isSnapshot(name); got != want {
			t.Errorf("isSnapshot(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestWatcher_SeenAndForget(t *testing.T) {
	w, err := NewWatcher(time.Second, nil, func([]string) bool { return true })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if w.seen("a.json", 1) {
		t.Fatal("unknown path must not count as seen")
	}
	w.digests["a.json"] = 1
	if !w.seen("a.json", 1) {
		t.Fatal("accepted digest must count as seen")
	}
	if w.seen("a.json", 2) {
		t.Fatal("new digest must not count as seen")
	}
	w.Forget([]string{"a.json"})
	if w.seen("a.json", 1) {
		t.Fatal("forgotten digest must not count as seen")
	}
}

func TestWatcher_RejectedBatchIsOfferedAgain(t *testing.T) {
	inbox := t.TempDir()

	offered := make(chan []string, 8)
	var accept atomic.Bool
	w, err := NewWatcher(50*time.Millisecond, nil, func(paths []string) bool {
		offered <- paths
		return accept.Load()
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch([]string{inbox}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(inbox, "job.json")
	content := []byte(`{"name":"core"}`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, offered, path, 2*time.Second)

	accept.Store(true)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, offered, path, 2*time.Second)

	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	expectNone(t, offered, 300*time.Millisecond)
}

func TestWatcher_ForgottenFileIsOfferedAgain(t *testing.T) {
	inbox := t.TempDir()

	offered := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, nil, func(paths []string) bool {
		offered <- paths
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch([]string{inbox}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(inbox, "job.json")
	content := []byte(`{"name":"core"}`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, offered, path, 2*time.Second)

	w.Forget([]string{path})
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, offered, path, 2*time.Second)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, offered, path, 2*time.Second)
}
