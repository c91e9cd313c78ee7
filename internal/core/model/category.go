package model

import (
	"strings"

	"warnboard/internal/core/errors"
)

// Category selects an issue partition of a Result.
type Category int

const (
	CategoryOutstanding Category = iota
	CategoryNew
	CategoryFixed
	CategoryActive // outstanding followed by new
)

var categoryNames = map[Category]string{
	CategoryOutstanding: "outstanding",
	CategoryNew:         "new",
	CategoryFixed:       "fixed",
	CategoryActive:      "outstanding+new",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseCategory maps a selector string to a Category. "active" is accepted as an alias
// for "outstanding+new".
func ParseCategory(raw string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "outstanding":
		return CategoryOutstanding, nil
	case "new":
		return CategoryNew, nil
	case "fixed":
		return CategoryFixed, nil
	case "outstanding+new", "outstanding new", "active":
		return CategoryActive, nil
	}
	return 0, errors.Newf(errors.CodeInvalidArgument,
		"issue category must be outstanding, new, fixed or outstanding+new but was: %q", raw)
}

// Partition returns the report for c. An out-of-range value fails with InvalidArgument.
func (r Result) Partition(c Category) (Report, error) {
	switch c {
	case CategoryOutstanding:
		return r.Outstanding, nil
	case CategoryNew:
		return r.New, nil
	case CategoryFixed:
		return r.Fixed, nil
	case CategoryActive:
		return r.Outstanding.Concat(r.New), nil
	}
	return nil, errors.Newf(errors.CodeInvalidArgument, "unsupported issue category %d", int(c))
}

// GroupBy selects the key issues are bucketed by.
type GroupBy int

const (
	GroupBySeverity GroupBy = iota
	GroupByCategory
	GroupByFile
)

func (g GroupBy) String() string {
	switch g {
	case GroupBySeverity:
		return "severity"
	case GroupByCategory:
		return "category"
	case GroupByFile:
		return "file"
	}
	return "unknown"
}

// ParseGroupBy defaults to severity on an empty string.
func ParseGroupBy(raw string) (GroupBy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "severity":
		return GroupBySeverity, nil
	case "category", "type":
		return GroupByCategory, nil
	case "file":
		return GroupByFile, nil
	}
	return 0, errors.Newf(errors.CodeInvalidArgument, "group by must be severity, category or file but was: %q", raw)
}

// Key returns the grouping key of issue for g.
func (g GroupBy) Key(issue Issue) string {
	var key string
	switch g {
	case GroupByCategory:
		key = issue.Category
	case GroupByFile:
		key = issue.File
	default:
		key = string(issue.Severity)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "-"
	}
	return key
}
