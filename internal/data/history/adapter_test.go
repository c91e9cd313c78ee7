package history

import (
	"context"
	"path/filepath"
	"testing"

	"warnboard/internal/core/ports"
)

var _ ports.JobStore = (*Adapter)(nil)

func TestAdapter_SaveAndLoadJob(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	adapter := NewAdapter(store)
	ctx := context.Background()
	if err := adapter.SaveJob(ctx, sampleJob("project-a")); err != nil {
		t.Fatalf("save job: %v", err)
	}

	job, err := adapter.LoadJob(ctx, "project-a")
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if len(job.Builds) != 2 {
		t.Fatalf("expected 2 builds, got %d", len(job.Builds))
	}

	jobs, err := adapter.ListJobs(ctx)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Name != "project-a" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}

	if err := adapter.DeleteJob(ctx, "project-a"); err != nil {
		t.Fatalf("delete job: %v", err)
	}
}

func TestAdapter_CanceledContext(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewAdapter(store).SaveJob(ctx, sampleJob("x")); err == nil {
		t.Fatal("expected canceled context to abort save")
	}
}
