package ports

import (
	"context"
	"time"

	"warnboard/internal/core/model"
	"warnboard/internal/engine/chart"
	"warnboard/internal/engine/table"
	"warnboard/internal/engine/trend"
)

// JobStore abstracts job history persistence for the dashboard.
type JobStore interface {
	SaveJob(ctx context.Context, job model.Job) error
	LoadJob(ctx context.Context, name string) (model.Job, error)
	ListJobs(ctx context.Context) ([]model.JobSummary, error)
	DeleteJob(ctx context.Context, name string) error
}

// IssueQuery selects the issues of one tool result.
type IssueQuery struct {
	Job      string
	Build    int
	ToolID   string
	Category string
	GroupBy  string
}

// WindowOverrides replaces the configured chart window fields that are set.
type WindowOverrides struct {
	MaxBuilds     *int
	MaxAgeDays    *int
	UseBuildLabel *bool
}

// Apply returns base with the set overrides applied.
func (o WindowOverrides) Apply(base trend.Config) trend.Config {
	if o.MaxBuilds != nil {
		base.MaxBuilds = *o.MaxBuilds
	}
	if o.MaxAgeDays != nil {
		base.MaxAgeDays = *o.MaxAgeDays
	}
	if o.UseBuildLabel != nil {
		base.UseBuildLabel = *o.UseBuildLabel
	}
	return base
}

// TrendRequest selects a trend chart of one job. An empty Tool means every tool.
type TrendRequest struct {
	Job    string
	Tool   string
	Metric string
	Window WindowOverrides
}

// MessagesResult holds the log lines a tool emitted for one build.
type MessagesResult struct {
	Info   []string `json:"info"`
	Errors []string `json:"errors"`
}

// ImportResult summarizes a completed import.
type ImportResult struct {
	Jobs         []string `json:"jobs"`
	Builds       int      `json:"builds"`
	Inconsistent int      `json:"inconsistent"`
}

// DashboardService defines the read and import operations driving adapters call.
type DashboardService interface {
	Jobs(ctx context.Context) ([]model.JobSummary, error)
	Job(ctx context.Context, name string) (model.Job, error)
	BuildRows(ctx context.Context, job string) ([]table.BuildRow, error)
	UsedTools(ctx context.Context, job string) ([]string, error)
	IssueRows(ctx context.Context, q IssueQuery) ([]table.IssueRow, error)
	TableRows(ctx context.Context, kind table.RowKind, q IssueQuery) ([]any, error)
	Messages(ctx context.Context, job string, build int, toolID string) (MessagesResult, error)
	ToolTrend(ctx context.Context, req TrendRequest) (chart.Model, error)
	NewVersusFixed(ctx context.Context, req TrendRequest) (chart.Model, error)
	BuildSummary(ctx context.Context, job string, build int) (chart.Model, error)
	Import(ctx context.Context, jobs []model.Job) (ImportResult, error)
}

// JobImporter persists decoded snapshots.
type JobImporter interface {
	Import(ctx context.Context, jobs []model.Job) (ImportResult, error)
}

// ImportBatch is a set of snapshot files waiting to be imported.
type ImportBatch struct {
	Paths  []string
	Queued time.Time
}

type EnqueueResult string

const (
	EnqueueAccepted EnqueueResult = "accepted"
	EnqueueDropped  EnqueueResult = "dropped"
)

// ImportQueue buffers batches between the inbox watcher and the import worker.
type ImportQueue interface {
	Enqueue(batch ImportBatch) EnqueueResult
	DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]ImportBatch, error)
	Close() error
	Len() int
}
