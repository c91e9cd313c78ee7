package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"warnboard/internal/engine/chart"
)

// RenderChartTSV writes one row per x label with a column per series.
func RenderChartTSV(m chart.Model) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var buf strings.Builder

	buf.WriteString("Label")
	for _, s := range m.Series {
		buf.WriteString("\t" + s.Name)
	}
	buf.WriteString("\n")
	for i, label := range m.XLabels {
		buf.WriteString(label)
		for _, s := range m.Series {
			buf.WriteString(fmt.Sprintf("\t%d", s.Values[i]))
		}
		buf.WriteString("\n")
	}

	return []byte(buf.String()), nil
}

func RenderChartJSON(m chart.Model) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(m, "", "  ")
}

// RenderChartMarkdown renders the chart as a pipe table with the same layout as the TSV.
func RenderChartMarkdown(m chart.Model) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	if m.IsEmpty() {
		return "_No builds in the trend window._\n", nil
	}
	var b strings.Builder

	b.WriteString("| Build |")
	for _, s := range m.Series {
		b.WriteString(" " + escapeCell(s.Name) + " |")
	}
	b.WriteString("\n| --- |")
	for range m.Series {
		b.WriteString(" ---: |")
	}
	b.WriteString("\n")
	for i, label := range m.XLabels {
		b.WriteString("| " + escapeCell(label) + " |")
		for _, s := range m.Series {
			b.WriteString(fmt.Sprintf(" %d |", s.Values[i]))
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
