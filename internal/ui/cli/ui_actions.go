package cli

import (
	"warnboard/internal/core/model"
	"warnboard/internal/core/ports"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

func handleKeyActions(msg tea.KeyMsg, m uiModel) (tea.Model, tea.Cmd) {
	if m.mode == panelBuilds && m.buildList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.buildList, cmd = m.buildList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab":
		if m.mode == panelTools {
			m.mode = panelBuilds
			return m, nil
		}
		return openSelectedBuild(m)
	case "t":
		m.showTrend = !m.showTrend
		return m, nil
	case "r":
		return m, loadJobCmd(m.ctx, m.svc, m.jobName)
	}

	if m.mode == panelBuilds {
		if msg.String() == "enter" {
			return openSelectedBuild(m)
		}
		var cmd tea.Cmd
		m.buildList, cmd = m.buildList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "enter":
		return m, issuesForCursor(m)
	case "c":
		m.category = nextCategory(m.category)
		if m.showIssues {
			return m, issuesForCursor(m)
		}
		return m, nil
	case "esc", "backspace":
		if m.showIssues {
			m.showIssues = false
			m.issues = nil
			m.issuesErr = ""
			return m, nil
		}
		m.mode = panelBuilds
		return m, nil
	}

	var cmd tea.Cmd
	m.toolTable, cmd = m.toolTable.Update(msg)
	return m, cmd
}

func openSelectedBuild(m uiModel) (uiModel, tea.Cmd) {
	selected, ok := m.buildList.SelectedItem().(buildItem)
	if !ok {
		return m, nil
	}
	m = m.fillToolTable(selected.number)
	m.mode = panelTools
	m.showIssues = false
	m.issues = nil
	m.issuesErr = ""
	return m, nil
}

func issuesForCursor(m uiModel) tea.Cmd {
	idx := m.toolTable.Cursor()
	if idx < 0 || idx >= len(m.toolIDs) {
		return nil
	}
	return loadIssuesCmd(m.ctx, m.svc, ports.IssueQuery{
		Job:      m.jobName,
		Build:    m.selectedBuild,
		ToolID:   m.toolIDs[idx],
		Category: m.category.String(),
	})
}

func nextCategory(c model.Category) model.Category {
	switch c {
	case model.CategoryOutstanding:
		return model.CategoryNew
	case model.CategoryNew:
		return model.CategoryFixed
	case model.CategoryFixed:
		return model.CategoryActive
	}
	return model.CategoryOutstanding
}
