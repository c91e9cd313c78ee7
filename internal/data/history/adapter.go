package history

import (
	"context"

	"warnboard/internal/core/model"
)

// Adapter bridges Store to the core JobStore port.
type Adapter struct {
	store *Store
}

func NewAdapter(store *Store) *Adapter {
	return &Adapter{store: store}
}

func (a *Adapter) SaveJob(ctx context.Context, job model.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.store.SaveJob(job)
}

func (a *Adapter) LoadJob(ctx context.Context, name string) (model.Job, error) {
	if err := ctx.Err(); err != nil {
		return model.Job{}, err
	}
	return a.store.LoadJob(name)
}

func (a *Adapter) ListJobs(ctx context.Context) ([]model.JobSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.store.ListJobs()
}

func (a *Adapter) DeleteJob(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.store.DeleteJob(name)
}

func (a *Adapter) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.store.Ping()
}
