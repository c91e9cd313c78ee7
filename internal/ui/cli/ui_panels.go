package cli

import (
	"fmt"
	"strings"

	"warnboard/internal/engine/chart"
	"warnboard/internal/engine/table"
	"warnboard/internal/engine/trend"
)

const barWidth = 30

func renderHelp(m uiModel) string {
	keys := "Keys: enter/tab tools | / filter | t new-vs-fixed | r reload | q quit"
	if m.mode == panelTools {
		keys = "Keys: enter issues | c category | esc back | tab builds | t new-vs-fixed | r reload | q quit"
	}
	return statusStyle.Render(keys)
}

func renderToolPanel(m uiModel) string {
	b, ok := m.build(m.selectedBuild)
	if !ok {
		return statusStyle.Render(fmt.Sprintf("Build #%d is no longer available.", m.selectedBuild))
	}
	title := "Tools of " + b.DisplayName()
	if len(b.Results) == 0 {
		return title + "\n\n" + statusStyle.Render("No tool ran in this build.")
	}
	out := title + "\n" + m.toolTable.View()
	if m.showIssues {
		out += "\n\n" + renderIssues(m)
	}
	return out
}

func renderIssues(m uiModel) string {
	header := fmt.Sprintf("Issues of %s (%s)", m.issueTool, m.category)
	if m.issuesErr != "" {
		return header + "\n" + newStyle.Render("  "+m.issuesErr)
	}
	return header + "\n" + renderIssueRows(m.issues, m.maxRows)
}

// renderIssueRows draws a horizontal bar per row scaled to the largest count.
func renderIssueRows(rows []table.IssueRow, maxRows int) string {
	if len(rows) == 0 {
		return statusStyle.Render("  none")
	}
	top := 0
	width := 0
	for _, r := range rows {
		if r.Count > top {
			top = r.Count
		}
		if len(r.Label) > width {
			width = len(r.Label)
		}
	}
	shown := rows
	if maxRows > 0 && len(shown) > maxRows {
		shown = shown[:maxRows]
	}
	lines := make([]string, 0, len(shown)+1)
	for _, r := range shown {
		n := 1
		if top > 0 {
			n = r.Count * barWidth / top
		}
		if n < 1 {
			n = 1
		}
		lines = append(lines, fmt.Sprintf("  %-*s %s %d", width, r.Label, outstandingStyle.Render(strings.Repeat("█", n)), r.Count))
	}
	if hidden := len(rows) - len(shown); hidden > 0 {
		lines = append(lines, statusStyle.Render(fmt.Sprintf("  ... %d more", hidden)))
	}
	return strings.Join(lines, "\n")
}

func renderTrendOverlay(m chart.Model, errMsg string, maxRows int) string {
	if errMsg != "" {
		return newStyle.Render("New vs fixed unavailable: " + errMsg)
	}
	added, okNew := m.SeriesByName(trend.SeriesNew)
	fixed, okFixed := m.SeriesByName(trend.SeriesFixed)
	if m.IsEmpty() || !okNew || !okFixed {
		return statusStyle.Render("New vs fixed: no builds in the trend window.")
	}

	start := 0
	if maxRows > 0 && len(m.XLabels) > maxRows {
		start = len(m.XLabels) - maxRows
	}
	lines := []string{"New vs Fixed"}
	for i := start; i < len(m.XLabels); i++ {
		lines = append(lines, fmt.Sprintf("  %-10s %s %s",
			m.XLabels[i],
			newStyle.Render(fmt.Sprintf("+%d", added.Values[i])),
			fixedStyle.Render(fmt.Sprintf("-%d", fixed.Values[i]))))
	}
	return strings.Join(lines, "\n")
}
