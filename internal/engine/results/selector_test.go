package results

import (
	"fmt"
	"strings"
	"testing"

	"warnboard/internal/core/errors"
	"warnboard/internal/core/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	jobName         = "jobName1"
	numberOfBuilds  = 5
	numberOfResults = 3
)

func report(file string, n int) model.Report {
	out := make(model.Report, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Issue{Severity: model.SeverityNormal, File: file, Line: i + 1})
	}
	return out
}

func createBuildWithResults(number int) model.Build {
	b := model.Build{
		Number: number,
		URL:    fmt.Sprintf("http://localhost:8080/jenkins/job/%s/%d/", jobName, number),
	}
	for i := 0; i < numberOfResults; i++ {
		b.Results = append(b.Results, model.Result{
			ToolID:        fmt.Sprintf("toolId%d", i),
			ToolName:      fmt.Sprintf("toolName%d Warnings", i),
			URL:           fmt.Sprintf("%stoolId%d", b.URL, i),
			Outstanding:   report("outstanding.go", i),
			New:           report("new.go", i*2),
			Fixed:         report("fixed.go", i*3),
			InfoMessages:  []string{"Info", "Message", fmt.Sprintf(": %d", i)},
			ErrorMessages: []string{"Error", "Message", fmt.Sprintf(": %d", i)},
		})
	}
	return b
}

// Builds are discovered out of order.
func createJob() model.Job {
	job := model.Job{ID: 1, Name: jobName, URL: "http://localhost:8080/jenkins/job/jobName1/", Status: "Success"}
	for _, n := range []int{2, 0, 4, 1, 3} {
		job.Builds = append(job.Builds, createBuildWithResults(n))
	}
	return job
}

func TestResultFor(t *testing.T) {
	sel := NewSelector(createJob())
	build, err := sel.Build(2)
	require.NoError(t, err)

	for i := 0; i < numberOfResults; i++ {
		id := fmt.Sprintf("toolId%d", i)
		result, err := sel.ResultFor(build, id)
		require.NoError(t, err)
		assert.Equal(t, id, result.ToolID)
	}

	_, err = sel.ResultFor(build, "checkstyle")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
	assert.True(t, strings.Contains(err.Error(), jobName), err.Error())
	assert.True(t, strings.Contains(err.Error(), "build 2"), err.Error())
	assert.True(t, strings.Contains(err.Error(), "checkstyle"), err.Error())
}

func TestIssuesFor(t *testing.T) {
	sel := NewSelector(createJob())
	build, err := sel.Build(1)
	require.NoError(t, err)

	tests := []struct {
		category model.Category
		want     int
	}{
		{model.CategoryOutstanding, 2},
		{model.CategoryNew, 4},
		{model.CategoryFixed, 6},
		{model.CategoryActive, 6},
	}
	for _, tt := range tests {
		t.Run(tt.category.String(), func(t *testing.T) {
			got, err := sel.IssuesFor(build, "toolId2", tt.category)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	active, err := sel.IssuesFor(build, "toolId2", model.CategoryActive)
	require.NoError(t, err)
	assert.Equal(t, "outstanding.go", active[0].File)
	assert.Equal(t, "outstanding.go", active[1].File)
	assert.Equal(t, "new.go", active[2].File)

	_, err = sel.IssuesFor(build, "missing", model.CategoryNew)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	_, err = sel.IssuesFor(build, "toolId1", model.Category(99))
	assert.True(t, errors.IsCode(err, errors.CodeInvalidArgument))
}

func TestUsedToolsKeepsResultOrder(t *testing.T) {
	build := model.Build{Results: []model.Result{{ToolName: "PMD"}, {ToolName: "CheckStyle"}, {ToolName: "SpotBugs"}}}
	assert.Equal(t, []string{"PMD", "CheckStyle", "SpotBugs"}, UsedTools(build))
	assert.Empty(t, UsedTools(model.Build{}))
}

func TestMessages(t *testing.T) {
	sel := NewSelector(createJob())
	build, err := sel.Build(0)
	require.NoError(t, err)

	info, err := sel.InfoMessages(build, "toolId1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Info", "Message", ": 1"}, info)

	errs, err := sel.ErrorMessages(build, "toolId2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Error", "Message", ": 2"}, errs)

	_, err = sel.InfoMessages(build, "nope")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestLatestBuild(t *testing.T) {
	_, err := NewSelector(model.Job{Name: "empty"}).LatestBuild()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	latest, err := NewSelector(createJob()).LatestBuild()
	require.NoError(t, err)
	assert.Equal(t, 4, latest.Number)
}

func TestBuildNotFound(t *testing.T) {
	_, err := NewSelector(createJob()).Build(42)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
	assert.Contains(t, err.Error(), jobName)
}

func TestBuildResults(t *testing.T) {
	sel := NewSelector(createJob())
	all := sel.BuildResults()
	require.Len(t, all, numberOfBuilds)
	for i, br := range all {
		assert.Equal(t, i, br.Build.Number)
		assert.Len(t, br.Results, numberOfResults)
	}

	forTool := sel.BuildResultsForTool("toolName0 Warnings")
	require.Len(t, forTool, numberOfBuilds)
	for i, br := range forTool {
		assert.Equal(t, i, br.Build.Number)
		require.Len(t, br.Results, 1)
		assert.Equal(t, "toolName0 Warnings", br.Results[0].ToolName)
		assert.Equal(t, 0, br.Results[0].NewSize())
	}

	none := sel.BuildResultsForTool("unknown")
	require.Len(t, none, numberOfBuilds)
	assert.Empty(t, none[0].Results)
}

func TestSelectorDoesNotReorderJob(t *testing.T) {
	job := createJob()
	sel := NewSelector(job)
	_ = sel.SortedBuilds()
	assert.Equal(t, 2, job.Builds[0].Number)
}
