// Package importer reads job snapshots exported from a build server.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"warnboard/internal/core/errors"
	"warnboard/internal/core/model"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the decoder by file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errors.Newf(errors.CodeInvalidArgument, "unsupported snapshot extension %q", filepath.Ext(path))
}

// envelope accepts either {"jobs": [...]} or a single job object.
type envelope struct {
	Jobs []model.Job `json:"jobs" yaml:"jobs"`
}

// Decode reads every job from r. The document may be a single job, a list of jobs or an
// object with a "jobs" list.
func Decode(r io.Reader, format Format) ([]model.Job, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New(errors.CodeInvalidArgument, "snapshot is empty")
	}

	var jobs []model.Job
	switch format {
	case FormatJSON:
		jobs, err = decodeJSON(trimmed)
	case FormatYAML:
		jobs, err = decodeYAML(trimmed)
	default:
		return nil, errors.Newf(errors.CodeInvalidArgument, "unsupported snapshot format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidArgument, "malformed snapshot")
	}
	for i, j := range jobs {
		if strings.TrimSpace(j.Name) == "" {
			return nil, errors.Newf(errors.CodeValidationError, "job %d of snapshot has no name", i)
		}
	}
	return jobs, nil
}

func decodeJSON(data []byte) ([]model.Job, error) {
	switch data[0] {
	case '[':
		var jobs []model.Job
		if err := json.Unmarshal(data, &jobs); err != nil {
			return nil, err
		}
		return jobs, nil
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, err
		}
		if _, ok := probe["jobs"]; ok {
			var env envelope
			if err := json.Unmarshal(data, &env); err != nil {
				return nil, err
			}
			return env.Jobs, nil
		}
		var job model.Job
		if err := json.Unmarshal(data, &job); err != nil {
			return nil, err
		}
		return []model.Job{job}, nil
	}
	return nil, fmt.Errorf("expected a JSON object or array")
}

func decodeYAML(data []byte) ([]model.Job, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("expected a YAML document")
	}
	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		var jobs []model.Job
		if err := doc.Decode(&jobs); err != nil {
			return nil, err
		}
		return jobs, nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(doc.Content); i += 2 {
			if doc.Content[i].Value == "jobs" {
				var env envelope
				if err := doc.Decode(&env); err != nil {
					return nil, err
				}
				return env.Jobs, nil
			}
		}
		var job model.Job
		if err := doc.Decode(&job); err != nil {
			return nil, err
		}
		return []model.Job{job}, nil
	}
	return nil, fmt.Errorf("expected a YAML mapping or sequence")
}

// DecodeFile decodes the snapshot at path using its extension.
func DecodeFile(path string) ([]model.Job, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	jobs, err := Decode(f, format)
	if err != nil {
		return nil, errors.AddContext(err, "file", path)
	}
	return jobs, nil
}

// Progress receives one increment per decoded file.
type Progress interface {
	Increment(n int)
	Complete()
}

type Options struct {
	Concurrency int
	Progress    Progress
}

// LoadFiles decodes paths concurrently and merges jobs of the same name. The first
// failing file cancels the rest.
func LoadFiles(ctx context.Context, paths []string, opts Options) ([]model.Job, error) {
	progress := opts.Progress
	if progress == nil {
		progress = noopProgress{}
	}
	defer progress.Complete()

	limit := opts.Concurrency
	if limit <= 0 {
		limit = 4
	}

	decoded := make([][]model.Job, len(paths))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			jobs, err := DecodeFile(path)
			if err != nil {
				return err
			}
			mu.Lock()
			decoded[i] = jobs
			mu.Unlock()
			progress.Increment(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.Job
	for _, jobs := range decoded {
		all = append(all, jobs...)
	}
	return Merge(all), nil
}

// Merge folds jobs with the same name into one, in first-seen order. Builds keep the order
// they were discovered in: a later build replaces an earlier one with the same number in
// place, new numbers are appended. The job header of the last occurrence wins.
func Merge(jobs []model.Job) []model.Job {
	index := make(map[string]int)
	out := make([]model.Job, 0, len(jobs))
	for _, job := range jobs {
		i, ok := index[job.Name]
		if !ok {
			index[job.Name] = len(out)
			job.Builds = append([]model.Build(nil), job.Builds...)
			out = append(out, job)
			continue
		}
		merged := out[i]
		merged.ID, merged.URL, merged.Status = job.ID, job.URL, job.Status
		merged.Builds = mergeBuilds(merged.Builds, job.Builds)
		out[i] = merged
	}
	return out
}

func mergeBuilds(existing, incoming []model.Build) []model.Build {
	pos := make(map[int]int, len(existing))
	for i, b := range existing {
		pos[b.Number] = i
	}
	for _, b := range incoming {
		if i, ok := pos[b.Number]; ok {
			existing[i] = b
			continue
		}
		pos[b.Number] = len(existing)
		existing = append(existing, b)
	}
	return existing
}

type noopProgress struct{}

func (noopProgress) Increment(int) {}
func (noopProgress) Complete()     {}
