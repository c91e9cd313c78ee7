package history

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"warnboard/internal/core/errors"
	"warnboard/internal/core/model"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

const (
	partOutstanding = "outstanding"
	partNew         = "new"
	partFixed       = "fixed"

	messageInfo  = "info"
	messageError = "error"
)

// Store persists job build histories in SQLite.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	return OpenWithTimeout(path, 2*time.Second)
}

func OpenWithTimeout(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}

	// busy_timeout + WAL reduce lock conflicts between the server and import runs.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history store is not open")
	}
	return s.db.Ping()
}

// SaveJob replaces the stored history of job.Name with job. Builds, results, issues and
// messages keep their input order.
func (s *Store) SaveJob(job model.Job) error {
	if err := validateJob(job); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("save job", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if err := saveJobTx(tx, job); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func saveJobTx(tx *sql.Tx, job model.Job) error {
	_, err := tx.Exec(`
INSERT INTO jobs (name, external_id, url, status, updated_at_utc) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  external_id=excluded.external_id,
  url=excluded.url,
  status=excluded.status,
  updated_at_utc=excluded.updated_at_utc
`, job.Name, job.ID, job.URL, job.Status, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert job %q: %w", job.Name, err)
	}

	var jobID int64
	if err := tx.QueryRow(`SELECT id FROM jobs WHERE name = ?`, job.Name).Scan(&jobID); err != nil {
		return fmt.Errorf("read job id %q: %w", job.Name, err)
	}
	if _, err := tx.Exec(`DELETE FROM builds WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("clear builds of %q: %w", job.Name, err)
	}

	for bi, build := range job.Builds {
		res, err := tx.Exec(
			`INSERT INTO builds (job_id, ordinal, number, url, ts_utc, label) VALUES (?, ?, ?, ?, ?, ?)`,
			jobID, bi, build.Number, build.URL, formatTime(build.Timestamp), build.Label,
		)
		if err != nil {
			return fmt.Errorf("insert build %d: %w", build.Number, err)
		}
		buildID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("read build id %d: %w", build.Number, err)
		}

		for ri, result := range build.Results {
			if err := insertResult(tx, buildID, ri, result); err != nil {
				return fmt.Errorf("build %d: %w", build.Number, err)
			}
		}
	}
	return nil
}

func insertResult(tx *sql.Tx, buildID int64, ordinal int, result model.Result) error {
	res, err := tx.Exec(`
INSERT INTO results (build_id, ordinal, tool_id, tool_name, url, new_count, fixed_count, total_count, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, buildID, ordinal, result.ToolID, result.ToolName, result.URL,
		result.NewCount, result.FixedCount, result.TotalCount, result.Status)
	if err != nil {
		return fmt.Errorf("insert result %s: %w", result.ToolID, err)
	}
	resultID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read result id %s: %w", result.ToolID, err)
	}

	partitions := []struct {
		name   string
		report model.Report
	}{
		{partOutstanding, result.Outstanding},
		{partNew, result.New},
		{partFixed, result.Fixed},
	}
	for _, p := range partitions {
		for i, issue := range p.report {
			if _, err := tx.Exec(`
INSERT INTO issues (result_id, part, ordinal, severity, category, file, line, message)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, resultID, p.name, i, string(issue.Severity), issue.Category, issue.File, issue.Line, issue.Message); err != nil {
				return fmt.Errorf("insert %s issue %d of %s: %w", p.name, i, result.ToolID, err)
			}
		}
	}

	messages := []struct {
		kind  string
		lines []string
	}{
		{messageInfo, result.InfoMessages},
		{messageError, result.ErrorMessages},
	}
	for _, m := range messages {
		for i, line := range m.lines {
			if _, err := tx.Exec(
				`INSERT INTO result_messages (result_id, kind, ordinal, message) VALUES (?, ?, ?, ?)`,
				resultID, m.kind, i, line,
			); err != nil {
				return fmt.Errorf("insert %s message %d of %s: %w", m.kind, i, result.ToolID, err)
			}
		}
	}
	return nil
}

func validateJob(job model.Job) error {
	if strings.TrimSpace(job.Name) == "" {
		return errors.New(errors.CodeValidationError, "job name must not be empty")
	}
	seenBuilds := make(map[int]bool, len(job.Builds))
	for _, b := range job.Builds {
		if seenBuilds[b.Number] {
			return errors.Newf(errors.CodeValidationError, "duplicate build number %d", b.Number).
				WithContext(errors.CtxJob, job.Name)
		}
		seenBuilds[b.Number] = true

		seenTools := make(map[string]bool, len(b.Results))
		for _, r := range b.Results {
			if strings.TrimSpace(r.ToolID) == "" {
				return errors.Newf(errors.CodeValidationError, "result without tool id in build %d", b.Number).
					WithContext(errors.CtxJob, job.Name)
			}
			if seenTools[r.ToolID] {
				return errors.Newf(errors.CodeValidationError, "duplicate tool id %s in build %d", r.ToolID, b.Number).
					WithContext(errors.CtxJob, job.Name).
					WithContext(errors.CtxBuild, b.Number)
			}
			seenTools[r.ToolID] = true
		}
	}
	return nil
}

type resultRef struct {
	build  int
	result int
}

// LoadJob reads the full history of the named job.
func (s *Store) LoadJob(name string) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		job   model.Job
		jobID int64
	)
	err := s.withRetry("load job", func() error {
		return s.db.QueryRow(`SELECT id, name, external_id, url, status FROM jobs WHERE name = ?`, name).
			Scan(&jobID, &job.Name, &job.ID, &job.URL, &job.Status)
	})
	if stderrors.Is(err, sql.ErrNoRows) {
		return model.Job{}, errors.Newf(errors.CodeNotFound, "job %s not found", name).
			WithContext(errors.CtxJob, name)
	}
	if err != nil {
		return model.Job{}, err
	}

	buildIdx, err := s.loadBuilds(jobID, &job)
	if err != nil {
		return model.Job{}, err
	}
	resultIdx, err := s.loadResults(jobID, &job, buildIdx)
	if err != nil {
		return model.Job{}, err
	}
	if err := s.loadIssues(jobID, &job, resultIdx); err != nil {
		return model.Job{}, err
	}
	if err := s.loadMessages(jobID, &job, resultIdx); err != nil {
		return model.Job{}, err
	}
	job.FillEmpty()
	return job, nil
}

func (s *Store) query(op, q string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	err := s.withRetry(op, func() error {
		var qErr error
		rows, qErr = s.db.Query(q, args...)
		return qErr
	})
	return rows, err
}

func (s *Store) loadBuilds(jobID int64, job *model.Job) (map[int64]int, error) {
	rows, err := s.query("load builds",
		`SELECT id, number, url, ts_utc, label FROM builds WHERE job_id = ? ORDER BY ordinal ASC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	idx := make(map[int64]int)
	for rows.Next() {
		var (
			id    int64
			tsRaw string
			build model.Build
		)
		if err := rows.Scan(&id, &build.Number, &build.URL, &tsRaw, &build.Label); err != nil {
			return nil, fmt.Errorf("scan build row: %w", err)
		}
		ts, err := parseTime(tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse build timestamp %q: %w", tsRaw, err)
		}
		build.Timestamp = ts
		idx[id] = len(job.Builds)
		job.Builds = append(job.Builds, build)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate build rows: %w", err)
	}
	return idx, nil
}

func (s *Store) loadResults(jobID int64, job *model.Job, buildIdx map[int64]int) (map[int64]resultRef, error) {
	rows, err := s.query("load results", `
SELECT r.id, r.build_id, r.tool_id, r.tool_name, r.url, r.new_count, r.fixed_count, r.total_count, r.status
FROM results r JOIN builds b ON r.build_id = b.id
WHERE b.job_id = ?
ORDER BY b.ordinal ASC, r.ordinal ASC
`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	idx := make(map[int64]resultRef)
	for rows.Next() {
		var (
			id, buildID int64
			r           model.Result
		)
		if err := rows.Scan(&id, &buildID, &r.ToolID, &r.ToolName, &r.URL,
			&r.NewCount, &r.FixedCount, &r.TotalCount, &r.Status); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		bi, ok := buildIdx[buildID]
		if !ok {
			continue
		}
		idx[id] = resultRef{build: bi, result: len(job.Builds[bi].Results)}
		job.Builds[bi].Results = append(job.Builds[bi].Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}
	return idx, nil
}

func (s *Store) loadIssues(jobID int64, job *model.Job, resultIdx map[int64]resultRef) error {
	rows, err := s.query("load issues", `
SELECT i.result_id, i.part, i.severity, i.category, i.file, i.line, i.message
FROM issues i
JOIN results r ON i.result_id = r.id
JOIN builds b ON r.build_id = b.id
WHERE b.job_id = ?
ORDER BY i.result_id ASC, i.part ASC, i.ordinal ASC
`, jobID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			resultID int64
			part     string
			severity string
			issue    model.Issue
		)
		if err := rows.Scan(&resultID, &part, &severity, &issue.Category, &issue.File, &issue.Line, &issue.Message); err != nil {
			return fmt.Errorf("scan issue row: %w", err)
		}
		issue.Severity = model.Severity(severity)
		ref, ok := resultIdx[resultID]
		if !ok {
			continue
		}
		r := &job.Builds[ref.build].Results[ref.result]
		switch part {
		case partOutstanding:
			r.Outstanding = append(r.Outstanding, issue)
		case partNew:
			r.New = append(r.New, issue)
		case partFixed:
			r.Fixed = append(r.Fixed, issue)
		default:
			return fmt.Errorf("unknown issue partition %q", part)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate issue rows: %w", err)
	}
	return nil
}

func (s *Store) loadMessages(jobID int64, job *model.Job, resultIdx map[int64]resultRef) error {
	rows, err := s.query("load messages", `
SELECT m.result_id, m.kind, m.message
FROM result_messages m
JOIN results r ON m.result_id = r.id
JOIN builds b ON r.build_id = b.id
WHERE b.job_id = ?
ORDER BY m.result_id ASC, m.kind ASC, m.ordinal ASC
`, jobID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			resultID      int64
			kind, message string
		)
		if err := rows.Scan(&resultID, &kind, &message); err != nil {
			return fmt.Errorf("scan message row: %w", err)
		}
		ref, ok := resultIdx[resultID]
		if !ok {
			continue
		}
		r := &job.Builds[ref.build].Results[ref.result]
		if kind == messageError {
			r.ErrorMessages = append(r.ErrorMessages, message)
		} else {
			r.InfoMessages = append(r.InfoMessages, message)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate message rows: %w", err)
	}
	return nil
}

// ListJobs summarizes every stored job ordered by name.
func (s *Store) ListJobs() ([]model.JobSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.query("list jobs", `
SELECT j.name, j.url, j.status, COUNT(b.id), COALESCE(MAX(b.number), 0)
FROM jobs j LEFT JOIN builds b ON b.job_id = j.id
GROUP BY j.id
ORDER BY j.name ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]model.JobSummary, 0)
	for rows.Next() {
		var js model.JobSummary
		if err := rows.Scan(&js.Name, &js.URL, &js.Status, &js.BuildCount, &js.LatestBuild); err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, js)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, nil
}

// DeleteJob removes a job and its history.
func (s *Store) DeleteJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	err := s.withRetry("delete job", func() error {
		res, err := s.db.Exec(`DELETE FROM jobs WHERE name = ?`, name)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.Newf(errors.CodeNotFound, "job %s not found", name).WithContext(errors.CtxJob, name)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	if stderrors.Is(lastErr, sql.ErrNoRows) || errors.CodeOf(lastErr) != errors.CodeInternal {
		return lastErr
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || stderrors.Is(err, os.ErrInvalid)
}
