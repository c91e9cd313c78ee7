// Package results resolves builds, tool results and issue partitions inside one job.
package results

import (
	"sort"

	"warnboard/internal/core/errors"
	"warnboard/internal/core/model"
)

// Selector answers lookups against a single job. It never modifies the job.
type Selector struct {
	job model.Job
}

func NewSelector(job model.Job) Selector {
	return Selector{job: job}
}

func (s Selector) JobName() string { return s.job.Name }

// Build returns the build with the given number.
func (s Selector) Build(number int) (model.Build, error) {
	for _, b := range s.job.Builds {
		if b.Number == number {
			return b, nil
		}
	}
	return model.Build{}, errors.Newf(errors.CodeNotFound,
		"build %d from the job %s not found", number, s.job.Name).
		WithContext(errors.CtxJob, s.job.Name).
		WithContext(errors.CtxBuild, number)
}

// LatestBuild returns the build with the highest number.
func (s Selector) LatestBuild() (model.Build, error) {
	if len(s.job.Builds) == 0 {
		return model.Build{}, errors.Newf(errors.CodeNotFound, "job %s has no builds", s.job.Name).
			WithContext(errors.CtxJob, s.job.Name)
	}
	latest := s.job.Builds[0]
	for _, b := range s.job.Builds[1:] {
		if b.Number > latest.Number {
			latest = b
		}
	}
	return latest, nil
}

// ResultFor returns the result of build whose tool id equals toolID.
func (s Selector) ResultFor(build model.Build, toolID string) (model.Result, error) {
	for _, r := range build.Results {
		if r.ToolID == toolID {
			return r, nil
		}
	}
	return model.Result{}, errors.Newf(errors.CodeNotFound,
		"tool id %s for the build %d from the job %s not found", toolID, build.Number, s.job.Name).
		WithContext(errors.CtxJob, s.job.Name).
		WithContext(errors.CtxBuild, build.Number).
		WithContext(errors.CtxTool, toolID)
}

// IssuesFor returns the partition of the tool's result selected by category.
func (s Selector) IssuesFor(build model.Build, toolID string, category model.Category) (model.Report, error) {
	result, err := s.ResultFor(build, toolID)
	if err != nil {
		return nil, err
	}
	return result.Partition(category)
}

// UsedTools lists the tool names of build in result order.
func UsedTools(build model.Build) []string {
	tools := make([]string, 0, len(build.Results))
	for _, r := range build.Results {
		tools = append(tools, r.ToolName)
	}
	return tools
}

func (s Selector) UsedTools(build model.Build) []string {
	return UsedTools(build)
}

func (s Selector) InfoMessages(build model.Build, toolID string) ([]string, error) {
	result, err := s.ResultFor(build, toolID)
	if err != nil {
		return nil, err
	}
	return append([]string{}, result.InfoMessages...), nil
}

func (s Selector) ErrorMessages(build model.Build, toolID string) ([]string, error) {
	result, err := s.ResultFor(build, toolID)
	if err != nil {
		return nil, err
	}
	return append([]string{}, result.ErrorMessages...), nil
}

// SortedBuilds returns the job's builds ordered by ascending build number.
func (s Selector) SortedBuilds() []model.Build {
	builds := make([]model.Build, len(s.job.Builds))
	copy(builds, s.job.Builds)
	sort.SliceStable(builds, func(i, j int) bool {
		return builds[i].Number < builds[j].Number
	})
	return builds
}

// BuildResults pairs every build, ascending by number, with all of its results.
func (s Selector) BuildResults() []model.BuildResult {
	builds := s.SortedBuilds()
	out := make([]model.BuildResult, 0, len(builds))
	for _, b := range builds {
		out = append(out, model.BuildResult{Build: b, Results: b.Results})
	}
	return out
}

// BuildResultsForTool pairs every build with only the results named toolName. Builds in
// which the tool did not run keep an empty result set.
func (s Selector) BuildResultsForTool(toolName string) []model.BuildResult {
	builds := s.SortedBuilds()
	out := make([]model.BuildResult, 0, len(builds))
	for _, b := range builds {
		var matched []model.Result
		for _, r := range b.Results {
			if r.ToolName == toolName {
				matched = append(matched, r)
			}
		}
		out = append(out, model.BuildResult{Build: b, Results: matched})
	}
	return out
}
