// Package query parses the small job filter language used by `warnboard jobs --where`.
package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"warnboard/internal/core/errors"
	"warnboard/internal/core/model"
)

var (
	cqlSelectRE       = regexp.MustCompile(`(?i)^\s*SELECT\s+jobs(?:\s+WHERE\s+(.+))?\s*$`)
	cqlAndSplitRE     = regexp.MustCompile(`(?i)\s+AND\s+`)
	cqlNumericCondRE  = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s*(>=|<=|!=|=|>|<)\s*(-?[0-9]+)\s*$`)
	cqlContainsCondRE = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s+CONTAINS\s+['"]([^'"]+)['"]\s*$`)
	cqlStringCondRE   = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s*(=|!=)\s*['"]([^'"]+)['"]\s*$`)
)

var (
	numericFields = map[string]func(model.JobSummary) int{
		"builds": func(j model.JobSummary) int { return j.BuildCount },
		"latest": func(j model.JobSummary) int { return j.LatestBuild },
	}
	stringFields = map[string]func(model.JobSummary) string{
		"name":   func(j model.JobSummary) string { return j.Name },
		"status": func(j model.JobSummary) string { return j.Status },
		"url":    func(j model.JobSummary) string { return j.URL },
	}
)

type CQLQuery struct {
	Target     string
	Conditions []CQLCondition
}

type CQLCondition struct {
	Field  string
	Op     string
	IntVal int
	StrVal string
	IsInt  bool
}

// ParseCQL parses `SELECT jobs [WHERE cond [AND cond]...]`.
func ParseCQL(raw string) (CQLQuery, error) {
	matches := cqlSelectRE.FindStringSubmatch(strings.TrimSpace(raw))
	if len(matches) == 0 {
		return CQLQuery{}, errors.New(errors.CodeInvalidArgument, "invalid job query: expected SELECT jobs [WHERE ...]")
	}

	query := CQLQuery{Target: "jobs"}
	where := strings.TrimSpace(matches[1])
	if where == "" {
		return query, nil
	}

	parts := cqlAndSplitRE.Split(where, -1)
	query.Conditions = make([]CQLCondition, 0, len(parts))
	for _, part := range parts {
		condition, err := parseCQLCondition(part)
		if err != nil {
			return CQLQuery{}, err
		}
		query.Conditions = append(query.Conditions, condition)
	}
	return query, nil
}

// ParseWhere parses only the condition list of a job query.
func ParseWhere(where string) (CQLQuery, error) {
	if strings.TrimSpace(where) == "" {
		return CQLQuery{Target: "jobs"}, nil
	}
	return ParseCQL("SELECT jobs WHERE " + where)
}

func parseCQLCondition(raw string) (CQLCondition, error) {
	if match := cqlNumericCondRE.FindStringSubmatch(raw); len(match) == 4 {
		field := strings.ToLower(strings.TrimSpace(match[1]))
		if _, ok := numericFields[field]; !ok {
			return CQLCondition{}, unknownField(field, "numeric")
		}
		value, err := strconv.Atoi(strings.TrimSpace(match[3]))
		if err != nil {
			return CQLCondition{}, errors.Wrap(err, errors.CodeInvalidArgument, fmt.Sprintf("invalid numeric value %q", match[3]))
		}
		return CQLCondition{Field: field, Op: strings.TrimSpace(match[2]), IntVal: value, IsInt: true}, nil
	}

	if match := cqlContainsCondRE.FindStringSubmatch(raw); len(match) == 3 {
		field := strings.ToLower(strings.TrimSpace(match[1]))
		if _, ok := stringFields[field]; !ok {
			return CQLCondition{}, unknownField(field, "text")
		}
		return CQLCondition{Field: field, Op: "contains", StrVal: strings.TrimSpace(match[2])}, nil
	}

	if match := cqlStringCondRE.FindStringSubmatch(raw); len(match) == 4 {
		field := strings.ToLower(strings.TrimSpace(match[1]))
		if _, ok := stringFields[field]; !ok {
			return CQLCondition{}, unknownField(field, "text")
		}
		return CQLCondition{Field: field, Op: strings.TrimSpace(match[2]), StrVal: strings.TrimSpace(match[3])}, nil
	}

	return CQLCondition{}, errors.Newf(errors.CodeInvalidArgument, "invalid job condition %q", strings.TrimSpace(raw))
}

func unknownField(field, kind string) error {
	return errors.Newf(errors.CodeInvalidArgument, "unknown %s field %q", kind, field)
}

// Match reports whether job satisfies every condition.
func (q CQLQuery) Match(job model.JobSummary) bool {
	for _, c := range q.Conditions {
		if !c.match(job) {
			return false
		}
	}
	return true
}

// Filter keeps the jobs matching q, in order.
func (q CQLQuery) Filter(jobs []model.JobSummary) []model.JobSummary {
	out := make([]model.JobSummary, 0, len(jobs))
	for _, j := range jobs {
		if q.Match(j) {
			out = append(out, j)
		}
	}
	return out
}

func (c CQLCondition) match(job model.JobSummary) bool {
	if c.IsInt {
		v := numericFields[c.Field](job)
		switch c.Op {
		case ">":
			return v > c.IntVal
		case ">=":
			return v >= c.IntVal
		case "<":
			return v < c.IntVal
		case "<=":
			return v <= c.IntVal
		case "!=":
			return v != c.IntVal
		default:
			return v == c.IntVal
		}
	}
	v := stringFields[c.Field](job)
	switch c.Op {
	case "contains":
		return strings.Contains(strings.ToLower(v), strings.ToLower(c.StrVal))
	case "!=":
		return !strings.EqualFold(v, c.StrVal)
	default:
		return strings.EqualFold(v, c.StrVal)
	}
}
