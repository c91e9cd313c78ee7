// Package trend derives chart series from an ordered build history.
package trend

import (
	"strings"
	"time"

	"warnboard/internal/core/errors"
	"warnboard/internal/core/model"
	"warnboard/internal/engine/chart"
)

// Config bounds the builds a trend chart covers. Zero values mean no limit.
type Config struct {
	MaxBuilds     int  `json:"maxBuilds,omitempty" toml:"max_builds"`
	MaxAgeDays    int  `json:"maxAgeDays,omitempty" toml:"max_age_days"`
	UseBuildLabel bool `json:"useBuildLabel,omitempty" toml:"use_build_label"`
}

type Metric int

const (
	MetricTotal Metric = iota
	MetricNew
	MetricFixed
)

func (m Metric) String() string {
	switch m {
	case MetricNew:
		return "new"
	case MetricFixed:
		return "fixed"
	}
	return "total"
}

func ParseMetric(raw string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "total":
		return MetricTotal, nil
	case "new":
		return MetricNew, nil
	case "fixed":
		return MetricFixed, nil
	}
	return 0, errors.Newf(errors.CodeInvalidArgument, "metric must be total, new or fixed but was: %q", raw)
}

func (m Metric) Value(r model.Result) int {
	switch m {
	case MetricNew:
		return r.NewSize()
	case MetricFixed:
		return r.FixedSize()
	}
	return r.TotalSize()
}

const (
	SeriesNew         = "new"
	SeriesFixed       = "fixed"
	SeriesOutstanding = "outstanding"

	colorNew         = "#EF9A9A"
	colorFixed       = "#A5D6A7"
	colorOutstanding = "#FFE082"
)

var toolPalette = []string{"#5470C6", "#91CC75", "#FAC858", "#EE6666", "#73C0DE", "#3BA272", "#FC8452", "#9A60B4"}

// Window applies the max-age filter, measured from the newest timestamp in builds, and
// then keeps the newest MaxBuilds entries. builds must be ascending by build number.
// Builds without a timestamp are never dropped by age.
func Window(builds []model.BuildResult, cfg Config) []model.BuildResult {
	if len(builds) == 0 {
		return nil
	}

	kept := builds
	if cfg.MaxAgeDays > 0 {
		var latest time.Time
		for _, br := range builds {
			if br.Build.Timestamp.After(latest) {
				latest = br.Build.Timestamp
			}
		}
		if !latest.IsZero() {
			cutoff := latest.Add(-time.Duration(cfg.MaxAgeDays) * 24 * time.Hour)
			kept = make([]model.BuildResult, 0, len(builds))
			for _, br := range builds {
				ts := br.Build.Timestamp
				if ts.IsZero() || !ts.Before(cutoff) {
					kept = append(kept, br)
				}
			}
		}
	}

	if cfg.MaxBuilds > 0 && len(kept) > cfg.MaxBuilds {
		kept = kept[len(kept)-cfg.MaxBuilds:]
	}

	out := make([]model.BuildResult, len(kept))
	copy(out, kept)
	return out
}

func label(b model.Build, cfg Config) string {
	if cfg.UseBuildLabel && strings.TrimSpace(b.Label) != "" {
		return b.Label
	}
	return b.DisplayName()
}

// ToolTrend draws one line per tool seen in the window, in first-seen order. A tool that
// did not run in a build contributes 0 at that position.
func ToolTrend(builds []model.BuildResult, cfg Config, metric Metric) chart.Model {
	window := Window(builds, cfg)
	if len(window) == 0 {
		return chart.Empty()
	}

	b := chart.NewBuilder()
	seen := make(map[string]bool)
	for _, br := range window {
		for _, r := range br.Results {
			if seen[r.ToolName] {
				continue
			}
			b.Declare(r.ToolName, toolPalette[len(seen)%len(toolPalette)])
			seen[r.ToolName] = true
		}
	}
	for _, br := range window {
		values := make(map[string]int, len(br.Results))
		for _, r := range br.Results {
			values[r.ToolName] += metric.Value(r)
		}
		b.AddColumn(label(br.Build, cfg), values)
	}
	return b.Build()
}

// ToolTrendFor draws the single line of toolName.
func ToolTrendFor(builds []model.BuildResult, cfg Config, toolName string, metric Metric) (chart.Model, error) {
	window := Window(builds, cfg)
	if len(window) == 0 {
		return chart.Empty(), nil
	}
	if !containsTool(window, toolName) {
		return chart.Model{}, toolNotFound(toolName, len(window))
	}

	b := chart.NewBuilder()
	b.Declare(toolName, toolPalette[0])
	for _, br := range window {
		sum := 0
		for _, r := range br.Results {
			if r.ToolName == toolName {
				sum += metric.Value(r)
			}
		}
		b.AddColumn(label(br.Build, cfg), map[string]int{toolName: sum})
	}
	return b.Build(), nil
}

// NewVersusFixed draws the "new" and "fixed" lines. With an empty toolName the values are
// summed over every result of a build; otherwise only toolName's results count.
func NewVersusFixed(builds []model.BuildResult, cfg Config, toolName string) (chart.Model, error) {
	window := Window(builds, cfg)
	if len(window) == 0 {
		return chart.Empty(), nil
	}
	if toolName != "" && !containsTool(window, toolName) {
		return chart.Model{}, toolNotFound(toolName, len(window))
	}

	b := chart.NewBuilder()
	b.Declare(SeriesNew, colorNew)
	b.Declare(SeriesFixed, colorFixed)
	for _, br := range window {
		var added, fixed int
		for _, r := range br.Results {
			if toolName != "" && r.ToolName != toolName {
				continue
			}
			added += r.NewSize()
			fixed += r.FixedSize()
		}
		b.AddColumn(label(br.Build, cfg), map[string]int{SeriesNew: added, SeriesFixed: fixed})
	}
	return b.Build(), nil
}

// BuildSummary charts one build: an x position per tool with its outstanding, new and
// fixed counts.
func BuildSummary(build model.Build) chart.Model {
	if len(build.Results) == 0 {
		return chart.Empty()
	}
	b := chart.NewBuilder()
	b.Declare(SeriesOutstanding, colorOutstanding)
	b.Declare(SeriesNew, colorNew)
	b.Declare(SeriesFixed, colorFixed)
	for _, r := range build.Results {
		b.AddColumn(r.ToolName, map[string]int{
			SeriesOutstanding: len(r.Outstanding),
			SeriesNew:         r.NewSize(),
			SeriesFixed:       r.FixedSize(),
		})
	}
	return b.Build()
}

func containsTool(window []model.BuildResult, toolName string) bool {
	for _, br := range window {
		for _, r := range br.Results {
			if r.ToolName == toolName {
				return true
			}
		}
	}
	return false
}

func toolNotFound(toolName string, builds int) error {
	return errors.Newf(errors.CodeNotFound, "tool %s not found in any of the %d builds of the trend window", toolName, builds).
		WithContext(errors.CtxTool, toolName)
}
