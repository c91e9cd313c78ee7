package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"warnboard/internal/core/config"
	"warnboard/internal/core/errors"
	"warnboard/internal/core/model"
	"warnboard/internal/core/ports"
	"warnboard/internal/engine/chart"
	"warnboard/internal/engine/results"
	"warnboard/internal/engine/table"
	"warnboard/internal/engine/trend"
	"warnboard/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Dashboard serves the read and import use cases over a JobStore.
type Dashboard struct {
	store ports.JobStore

	mu     sync.RWMutex
	chart  trend.Config
	tables config.Tables
	filter *config.JobFilter
}

var _ ports.DashboardService = (*Dashboard)(nil)

func NewDashboard(store ports.JobStore, cfg *config.Config) (*Dashboard, error) {
	if store == nil {
		return nil, errors.New(errors.CodeInternal, "job store is required")
	}
	d := &Dashboard{store: store}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := d.ApplyConfig(cfg); err != nil {
		return nil, err
	}
	return d, nil
}

// ApplyConfig swaps in the chart, table and job filter settings of cfg.
func (d *Dashboard) ApplyConfig(cfg *config.Config) error {
	filter, err := config.NewJobFilter(cfg.Jobs)
	if err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "invalid job patterns")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chart = cfg.Chart
	d.tables = cfg.Tables
	d.filter = filter
	return nil
}

// ChartDefaults returns the configured trend window.
func (d *Dashboard) ChartDefaults() trend.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.chart
}

func (d *Dashboard) settings() (trend.Config, config.Tables, *config.JobFilter) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.chart, d.tables, d.filter
}

func (d *Dashboard) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := observability.Tracer.Start(ctx, "Dashboard."+op, trace.WithAttributes(attrs...))
	started := time.Now()
	return ctx, func(errp *error) {
		observability.OperationDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
			observability.OperationErrorsTotal.WithLabelValues(op, string(errors.CodeOf(*errp))).Inc()
		}
		span.End()
	}
}

func (d *Dashboard) Jobs(ctx context.Context) (out []model.JobSummary, err error) {
	ctx, done := d.begin(ctx, "Jobs")
	defer func() { done(&err) }()

	all, err := d.store.ListJobs(ctx)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, "list_jobs")
	}
	observability.StoredJobs.Set(float64(len(all)))

	_, _, filter := d.settings()
	out = make([]model.JobSummary, 0, len(all))
	for _, js := range all {
		if filter.Match(js.Name) {
			out = append(out, js)
		}
	}
	return out, nil
}

func (d *Dashboard) Job(ctx context.Context, name string) (job model.Job, err error) {
	ctx, done := d.begin(ctx, "Job", attribute.String("job", name))
	defer func() { done(&err) }()
	return d.loadJob(ctx, name)
}

// loadJob fetches name and logs results whose declared counts disagree with their lists.
func (d *Dashboard) loadJob(ctx context.Context, name string) (model.Job, error) {
	_, _, filter := d.settings()
	if !filter.Match(name) {
		return model.Job{}, errors.Newf(errors.CodeNotFound, "job %s not found", name).
			WithContext(errors.CtxJob, name)
	}
	job, err := d.store.LoadJob(ctx, name)
	if err != nil {
		return model.Job{}, err
	}
	for _, b := range job.Builds {
		for _, r := range b.Results {
			if !r.CountsConsistent() {
				observability.InconsistentResultsTotal.Inc()
				slog.Warn("declared counts disagree with issue lists",
					"job", job.Name, "build", b.Number, "tool", r.ToolID,
					"newCount", r.NewCount, "new", r.NewSize(),
					"fixedCount", r.FixedCount, "fixed", r.FixedSize(),
					"totalCount", r.TotalCount, "total", r.TotalSize())
			}
		}
	}
	return job, nil
}

func (d *Dashboard) selectBuild(ctx context.Context, jobName string, number int) (results.Selector, model.Build, error) {
	job, err := d.loadJob(ctx, jobName)
	if err != nil {
		return results.Selector{}, model.Build{}, err
	}
	sel := results.NewSelector(job)
	build, err := sel.Build(number)
	if err != nil {
		return results.Selector{}, model.Build{}, err
	}
	return sel, build, nil
}

func (d *Dashboard) BuildRows(ctx context.Context, jobName string) (rows []table.BuildRow, err error) {
	ctx, done := d.begin(ctx, "BuildRows", attribute.String("job", jobName))
	defer func() { done(&err) }()

	job, err := d.loadJob(ctx, jobName)
	if err != nil {
		return nil, err
	}
	return table.BuildRows(job.Builds), nil
}

func (d *Dashboard) UsedTools(ctx context.Context, jobName string) (tools []string, err error) {
	ctx, done := d.begin(ctx, "UsedTools", attribute.String("job", jobName))
	defer func() { done(&err) }()

	job, err := d.loadJob(ctx, jobName)
	if err != nil {
		return nil, err
	}
	if len(job.Builds) == 0 {
		return []string{}, nil
	}
	sel := results.NewSelector(job)
	latest, err := sel.LatestBuild()
	if err != nil {
		return nil, err
	}
	return sel.UsedTools(latest), nil
}

func (d *Dashboard) IssueRows(ctx context.Context, q ports.IssueQuery) (rows []table.IssueRow, err error) {
	ctx, done := d.begin(ctx, "IssueRows",
		attribute.String("job", q.Job), attribute.Int("build", q.Build), attribute.String("tool", q.ToolID))
	defer func() { done(&err) }()

	report, groupBy, err := d.issueReport(ctx, q)
	if err != nil {
		return nil, err
	}
	return table.IssueRows(report, groupBy), nil
}

// TableRows returns the rows of the kind table as plain values: the builds of q.Job, or
// the issue buckets selected by q.
func (d *Dashboard) TableRows(ctx context.Context, kind table.RowKind, q ports.IssueQuery) (rows []any, err error) {
	ctx, done := d.begin(ctx, "TableRows", attribute.String("kind", string(kind)), attribute.String("job", q.Job))
	defer func() { done(&err) }()

	var src table.Source
	switch kind {
	case table.KindBuilds:
		job, err := d.loadJob(ctx, q.Job)
		if err != nil {
			return nil, err
		}
		src.Builds = job.Builds
	case table.KindIssues:
		src.Report, src.GroupBy, err = d.issueReport(ctx, q)
		if err != nil {
			return nil, err
		}
	}
	return table.Rows(kind, src)
}

// issueReport resolves the category and grouping of q, falling back to the configured
// table defaults, and selects the matching issues.
func (d *Dashboard) issueReport(ctx context.Context, q ports.IssueQuery) (model.Report, model.GroupBy, error) {
	_, tables, _ := d.settings()
	rawCategory := q.Category
	if rawCategory == "" {
		rawCategory = tables.DefaultCategory
	}
	category, err := model.ParseCategory(rawCategory)
	if err != nil {
		return nil, 0, err
	}
	rawGroupBy := q.GroupBy
	if rawGroupBy == "" {
		rawGroupBy = tables.DefaultGroupBy
	}
	groupBy, err := model.ParseGroupBy(rawGroupBy)
	if err != nil {
		return nil, 0, err
	}

	sel, build, err := d.selectBuild(ctx, q.Job, q.Build)
	if err != nil {
		return nil, 0, err
	}
	report, err := sel.IssuesFor(build, q.ToolID, category)
	if err != nil {
		return nil, 0, err
	}
	return report, groupBy, nil
}

func (d *Dashboard) Messages(ctx context.Context, jobName string, number int, toolID string) (res ports.MessagesResult, err error) {
	ctx, done := d.begin(ctx, "Messages",
		attribute.String("job", jobName), attribute.Int("build", number), attribute.String("tool", toolID))
	defer func() { done(&err) }()

	sel, build, err := d.selectBuild(ctx, jobName, number)
	if err != nil {
		return ports.MessagesResult{}, err
	}
	info, err := sel.InfoMessages(build, toolID)
	if err != nil {
		return ports.MessagesResult{}, err
	}
	errs, err := sel.ErrorMessages(build, toolID)
	if err != nil {
		return ports.MessagesResult{}, err
	}
	return ports.MessagesResult{Info: info, Errors: errs}, nil
}

func (d *Dashboard) ToolTrend(ctx context.Context, req ports.TrendRequest) (m chart.Model, err error) {
	ctx, done := d.begin(ctx, "ToolTrend", attribute.String("job", req.Job), attribute.String("tool", req.Tool))
	defer func() { done(&err) }()

	metric, err := trend.ParseMetric(req.Metric)
	if err != nil {
		return chart.Model{}, err
	}
	cfg, err := d.window(req.Window)
	if err != nil {
		return chart.Model{}, err
	}
	job, err := d.loadJob(ctx, req.Job)
	if err != nil {
		return chart.Model{}, err
	}
	sel := results.NewSelector(job)
	if req.Tool == "" {
		return trend.ToolTrend(sel.BuildResults(), cfg, metric), nil
	}
	m, err = trend.ToolTrendFor(sel.BuildResults(), cfg, req.Tool, metric)
	return m, addJob(err, req.Job)
}

func (d *Dashboard) NewVersusFixed(ctx context.Context, req ports.TrendRequest) (m chart.Model, err error) {
	ctx, done := d.begin(ctx, "NewVersusFixed", attribute.String("job", req.Job), attribute.String("tool", req.Tool))
	defer func() { done(&err) }()

	cfg, err := d.window(req.Window)
	if err != nil {
		return chart.Model{}, err
	}
	job, err := d.loadJob(ctx, req.Job)
	if err != nil {
		return chart.Model{}, err
	}
	m, err = trend.NewVersusFixed(results.NewSelector(job).BuildResults(), cfg, req.Tool)
	return m, addJob(err, req.Job)
}

func (d *Dashboard) BuildSummary(ctx context.Context, jobName string, number int) (m chart.Model, err error) {
	ctx, done := d.begin(ctx, "BuildSummary", attribute.String("job", jobName), attribute.Int("build", number))
	defer func() { done(&err) }()

	_, build, err := d.selectBuild(ctx, jobName, number)
	if err != nil {
		return chart.Model{}, err
	}
	return trend.BuildSummary(build), nil
}

func (d *Dashboard) Import(ctx context.Context, jobs []model.Job) (res ports.ImportResult, err error) {
	ctx, done := d.begin(ctx, "Import", attribute.Int("jobs", len(jobs)))
	defer func() { done(&err) }()

	res.Jobs = make([]string, 0, len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := d.store.SaveJob(ctx, job); err != nil {
			return res, errors.AddContext(err, errors.CtxJob, job.Name)
		}
		res.Jobs = append(res.Jobs, job.Name)
		res.Builds += len(job.Builds)
		for _, b := range job.Builds {
			for _, r := range b.Results {
				if !r.CountsConsistent() {
					res.Inconsistent++
				}
			}
		}
		observability.ImportedJobsTotal.Inc()
		observability.ImportedBuildsTotal.Add(float64(len(job.Builds)))
		slog.Info("imported job", "job", job.Name, "builds", len(job.Builds))
	}
	return res, nil
}

func (d *Dashboard) window(o ports.WindowOverrides) (trend.Config, error) {
	cfg := o.Apply(d.ChartDefaults())
	if cfg.MaxBuilds < 0 || cfg.MaxAgeDays < 0 {
		return trend.Config{}, errors.Newf(errors.CodeInvalidArgument,
			"maxBuilds and maxAgeDays must not be negative, got %d and %d", cfg.MaxBuilds, cfg.MaxAgeDays)
	}
	return cfg, nil
}

func addJob(err error, job string) error {
	if err == nil {
		return nil
	}
	return errors.AddContext(err, errors.CtxJob, job)
}
