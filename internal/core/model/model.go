// Package model holds the read-only Job -> Build -> Result -> Issue graph the dashboard
// renders. Values are handed to the engine fully materialized; builds do not point back
// at their job.
package model

import (
	"fmt"
	"time"
)

type Severity string

const (
	SeverityError  Severity = "ERROR"
	SeverityHigh   Severity = "HIGH"
	SeverityNormal Severity = "NORMAL"
	SeverityLow    Severity = "LOW"
)

type Issue struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Category string   `json:"category" yaml:"category"`
	File     string   `json:"file" yaml:"file"`
	Line     int      `json:"line,omitempty" yaml:"line,omitempty"`
	Message  string   `json:"message" yaml:"message"`
}

// Report is an ordered sequence of issues.
type Report []Issue

func (r Report) Len() int { return len(r) }

// Concat returns a new report holding r followed by other. Neither input is modified.
func (r Report) Concat(other Report) Report {
	out := make(Report, 0, len(r)+len(other))
	out = append(out, r...)
	return append(out, other...)
}

type Result struct {
	ToolID        string   `json:"toolId" yaml:"toolId"`
	ToolName      string   `json:"toolName" yaml:"toolName"`
	URL           string   `json:"url" yaml:"url"`
	NewCount      int      `json:"newCount" yaml:"newCount"`
	FixedCount    int      `json:"fixedCount" yaml:"fixedCount"`
	TotalCount    int      `json:"totalCount" yaml:"totalCount"`
	Status        string   `json:"status" yaml:"status"`
	Outstanding   Report   `json:"outstanding" yaml:"outstanding"`
	New           Report   `json:"new" yaml:"new"`
	Fixed         Report   `json:"fixed" yaml:"fixed"`
	InfoMessages  []string `json:"infoMessages" yaml:"infoMessages"`
	ErrorMessages []string `json:"errorMessages" yaml:"errorMessages"`
}

// NewSize, FixedSize and TotalSize are derived from the issue partitions. The declared
// *Count fields are kept as reported by the build server but never used for derivation.
func (r Result) NewSize() int   { return len(r.New) }
func (r Result) FixedSize() int { return len(r.Fixed) }
func (r Result) TotalSize() int { return len(r.Outstanding) + len(r.New) }

// CountsConsistent reports whether the declared counts match the issue partitions.
func (r Result) CountsConsistent() bool {
	return r.NewCount == r.NewSize() && r.FixedCount == r.FixedSize() && r.TotalCount == r.TotalSize()
}

type Build struct {
	Number    int       `json:"number" yaml:"number"`
	URL       string    `json:"url" yaml:"url"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Label     string    `json:"label,omitempty" yaml:"label,omitempty"`
	Results   []Result  `json:"results" yaml:"results"`
}

// DisplayName is the default x-axis label for the build.
func (b Build) DisplayName() string {
	return fmt.Sprintf("#%d", b.Number)
}

type Job struct {
	ID     int64   `json:"id" yaml:"id"`
	Name   string  `json:"name" yaml:"name"`
	URL    string  `json:"url" yaml:"url"`
	Status string  `json:"status" yaml:"status"`
	Builds []Build `json:"builds" yaml:"builds"`
}

// FillEmpty replaces nil build, result, issue and message slices with empty ones so the
// job encodes them as arrays.
func (j *Job) FillEmpty() {
	if j.Builds == nil {
		j.Builds = []Build{}
	}
	for bi := range j.Builds {
		b := &j.Builds[bi]
		if b.Results == nil {
			b.Results = []Result{}
		}
		for ri := range b.Results {
			r := &b.Results[ri]
			for _, rep := range []*Report{&r.Outstanding, &r.New, &r.Fixed} {
				if *rep == nil {
					*rep = Report{}
				}
			}
			if r.InfoMessages == nil {
				r.InfoMessages = []string{}
			}
			if r.ErrorMessages == nil {
				r.ErrorMessages = []string{}
			}
		}
	}
}

// JobSummary is the list view of a persisted job.
type JobSummary struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Status      string `json:"status"`
	BuildCount  int    `json:"buildCount"`
	LatestBuild int    `json:"latestBuild"`
}

// BuildResult pairs a build with the results that should be charted for it: all of the
// build's results for aggregate views, or the results of a single tool.
type BuildResult struct {
	Build   Build
	Results []Result
}
