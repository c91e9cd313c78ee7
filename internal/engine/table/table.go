// Package table converts reports and build histories into plain rows for the paginated
// data tables of the dashboard.
package table

import (
	"encoding/json"
	"sort"
	"strings"

	"warnboard/internal/core/errors"
	"warnboard/internal/core/model"
	"warnboard/internal/engine/stats"
)

type RowKind string

const (
	KindIssues RowKind = "issues"
	KindBuilds RowKind = "builds"
)

func ParseRowKind(raw string) (RowKind, error) {
	switch RowKind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindIssues:
		return KindIssues, nil
	case KindBuilds:
		return KindBuilds, nil
	}
	return "", errors.Newf(errors.CodeInvalidArgument, "table kind must be issues or builds but was: %q", raw)
}

type IssueRow struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type BuildRow struct {
	BuildNumber int    `json:"buildNumber"`
	BuildURL    string `json:"buildUrl"`
}

// IssueRows returns one row per grouping bucket, ordered by descending count and then
// ascending label.
func IssueRows(report model.Report, groupBy model.GroupBy) []IssueRow {
	counts := stats.Aggregate(report, groupBy)
	rows := make([]IssueRow, 0, len(counts))
	for label, count := range counts {
		rows = append(rows, IssueRow{Label: label, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Label < rows[j].Label
	})
	return rows
}

// BuildRows returns one row per build in input order.
func BuildRows(builds []model.Build) []BuildRow {
	rows := make([]BuildRow, 0, len(builds))
	for _, b := range builds {
		rows = append(rows, BuildRow{BuildNumber: b.Number, BuildURL: b.URL})
	}
	return rows
}

// Source carries the inputs for either row kind.
type Source struct {
	Report  model.Report
	GroupBy model.GroupBy
	Builds  []model.Build
}

// Rows dispatches on kind and returns rows as plain values ready for JSON encoding.
func Rows(kind RowKind, src Source) ([]any, error) {
	switch kind {
	case KindIssues:
		rows := IssueRows(src.Report, src.GroupBy)
		out := make([]any, len(rows))
		for i, r := range rows {
			out[i] = r
		}
		return out, nil
	case KindBuilds:
		rows := BuildRows(src.Builds)
		out := make([]any, len(rows))
		for i, r := range rows {
			out[i] = r
		}
		return out, nil
	}
	return nil, errors.Newf(errors.CodeInvalidArgument, "unsupported table kind %q", string(kind))
}

type Column struct {
	HeaderLabel string `json:"headerLabel"`
	Data        string `json:"data"`
	Width       int    `json:"width"`
	HeaderClass string `json:"headerClass"`
}

type TableModel struct {
	ID      string   `json:"id"`
	Columns []Column `json:"columns"`
}

var schemas = map[RowKind][]Column{
	KindBuilds: {
		{HeaderLabel: "Build Number", Data: "buildNumber", Width: 1},
		{HeaderLabel: "Url", Data: "buildUrl", Width: 1},
	},
	KindIssues: {
		{HeaderLabel: "Label", Data: "label", Width: 2},
		{HeaderLabel: "Count", Data: "count", Width: 1},
	},
}

// Model returns the static column schema for kind.
func Model(kind RowKind) (TableModel, error) {
	cols, ok := schemas[kind]
	if !ok {
		return TableModel{}, errors.Newf(errors.CodeInvalidArgument, "unsupported table kind %q", string(kind))
	}
	out := make([]Column, len(cols))
	copy(out, cols)
	return TableModel{ID: string(kind), Columns: out}, nil
}

type columnDefinition struct {
	Data           string `json:"data"`
	DefaultContent string `json:"defaultContent"`
}

// ColumnsDefinition renders the column list in the format the table widget expects.
func (m TableModel) ColumnsDefinition() string {
	defs := make([]columnDefinition, 0, len(m.Columns))
	for _, c := range m.Columns {
		defs = append(defs, columnDefinition{Data: c.Data})
	}
	raw, err := json.Marshal(defs)
	if err != nil {
		return "[]"
	}
	return string(raw)
}
