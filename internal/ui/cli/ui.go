package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"warnboard/internal/core/model"
	"warnboard/internal/core/ports"
	"warnboard/internal/engine/chart"
	"warnboard/internal/engine/table"

	"github.com/charmbracelet/bubbles/list"
	btable "github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	newStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	outstandingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FBBF24")).
				Bold(true)

	fixedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type buildItem struct {
	number int
	title  string
	desc   string
}

func (i buildItem) Title() string       { return i.title }
func (i buildItem) Description() string { return i.desc }
func (i buildItem) FilterValue() string { return i.title + " " + i.desc }

type panelMode int

const (
	panelBuilds panelMode = iota
	panelTools
)

type uiModel struct {
	ctx     context.Context
	svc     ports.DashboardService
	jobName string
	maxRows int

	buildList list.Model
	toolTable btable.Model
	mode      panelMode

	job        model.Job
	loaded     bool
	loadErr    string
	lastUpdate time.Time

	selectedBuild int
	toolIDs       []string

	category   model.Category
	issueTool  string
	issues     []table.IssueRow
	issuesErr  string
	showIssues bool
	showTrend  bool
	trend      chart.Model
	trendErr   string
}

type jobLoadedMsg struct {
	job      model.Job
	trend    chart.Model
	err      error
	trendErr error
}

type issuesLoadedMsg struct {
	toolID string
	rows   []table.IssueRow
	err    error
}

func newModel(ctx context.Context, svc ports.DashboardService, jobName string, maxRows int) uiModel {
	if maxRows <= 0 {
		maxRows = 20
	}
	buildList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	buildList.Title = "Builds"
	buildList.SetShowStatusBar(false)
	buildList.SetFilteringEnabled(true)

	toolTable := btable.New(
		btable.WithColumns([]btable.Column{
			{Title: "Tool", Width: 24},
			{Title: "ID", Width: 16},
			{Title: "Outstanding", Width: 12},
			{Title: "New", Width: 6},
			{Title: "Fixed", Width: 6},
			{Title: "Status", Width: 10},
		}),
		btable.WithFocused(true),
		btable.WithHeight(maxRows/2+1),
	)

	return uiModel{
		ctx:       ctx,
		svc:       svc,
		jobName:   jobName,
		maxRows:   maxRows,
		buildList: buildList,
		toolTable: toolTable,
		mode:      panelBuilds,
		category:  model.CategoryActive,
	}
}

func (m uiModel) Init() tea.Cmd {
	return loadJobCmd(m.ctx, m.svc, m.jobName)
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - 8
		if height < 5 {
			height = 5
		}
		m.buildList.SetSize(width, height)
		m.toolTable.SetWidth(width)
		return m, nil
	case jobLoadedMsg:
		m.lastUpdate = time.Now()
		if msg.err != nil {
			m.loadErr = msg.err.Error()
			return m, nil
		}
		m.loadErr = ""
		m.loaded = true
		m.job = msg.job
		m.trend = msg.trend
		m.trendErr = ""
		if msg.trendErr != nil {
			m.trendErr = msg.trendErr.Error()
		}
		m.buildList.SetItems(buildItems(m.job))
		if m.mode == panelTools {
			m = m.fillToolTable(m.selectedBuild)
		}
		return m, nil
	case issuesLoadedMsg:
		m.issueTool = msg.toolID
		m.showIssues = true
		m.issues = msg.rows
		m.issuesErr = ""
		if msg.err != nil {
			m.issues = nil
			m.issuesErr = msg.err.Error()
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.mode == panelBuilds {
		m.buildList, cmd = m.buildList.Update(msg)
	} else {
		m.toolTable, cmd = m.toolTable.Update(msg)
	}
	return m, cmd
}

func (m uiModel) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d builds | category %s",
		m.lastUpdate.Format("15:04:05"), len(m.job.Builds), m.category))

	header := fmt.Sprintf("%s\n%s\n", titleStyle("Warnings Dashboard: "+m.jobName), status)
	if m.loadErr != "" {
		return docStyle.Render(header + "\n" + newStyle.Render("Load failed: "+m.loadErr) + "\n\n" + renderHelp(m))
	}

	body := m.buildList.View()
	if m.mode == panelTools {
		body = renderToolPanel(m)
	}
	if m.showTrend {
		body += "\n\n" + renderTrendOverlay(m.trend, m.trendErr, m.maxRows)
	}
	return docStyle.Render(header + "\n" + renderHelp(m) + "\n\n" + body)
}

// buildItems lists the builds newest first.
func buildItems(job model.Job) []list.Item {
	builds := make([]model.Build, len(job.Builds))
	copy(builds, job.Builds)
	sort.SliceStable(builds, func(i, j int) bool { return builds[i].Number > builds[j].Number })

	items := make([]list.Item, 0, len(builds))
	for _, b := range builds {
		var added, fixed int
		for _, r := range b.Results {
			added += r.NewSize()
			fixed += r.FixedSize()
		}
		title := b.DisplayName()
		if b.Label != "" {
			title += " (" + b.Label + ")"
		}
		items = append(items, buildItem{
			number: b.Number,
			title:  title,
			desc:   fmt.Sprintf("tools=%d new=%d fixed=%d %s", len(b.Results), added, fixed, b.URL),
		})
	}
	return items
}

func (m uiModel) build(number int) (model.Build, bool) {
	for _, b := range m.job.Builds {
		if b.Number == number {
			return b, true
		}
	}
	return model.Build{}, false
}

func (m uiModel) fillToolTable(number int) uiModel {
	m.selectedBuild = number
	m.toolIDs = nil
	b, ok := m.build(number)
	if !ok {
		m.toolTable.SetRows(nil)
		return m
	}
	rows := make([]btable.Row, 0, len(b.Results))
	for _, r := range b.Results {
		m.toolIDs = append(m.toolIDs, r.ToolID)
		rows = append(rows, btable.Row{
			r.ToolName,
			r.ToolID,
			fmt.Sprintf("%d", len(r.Outstanding)),
			fmt.Sprintf("%d", r.NewSize()),
			fmt.Sprintf("%d", r.FixedSize()),
			r.Status,
		})
	}
	m.toolTable.SetRows(rows)
	m.toolTable.SetCursor(0)
	return m
}

func loadJobCmd(ctx context.Context, svc ports.DashboardService, jobName string) tea.Cmd {
	return func() tea.Msg {
		job, err := svc.Job(ctx, jobName)
		if err != nil {
			return jobLoadedMsg{err: err}
		}
		trend, trendErr := svc.NewVersusFixed(ctx, ports.TrendRequest{Job: jobName})
		return jobLoadedMsg{job: job, trend: trend, trendErr: trendErr}
	}
}

func loadIssuesCmd(ctx context.Context, svc ports.DashboardService, q ports.IssueQuery) tea.Cmd {
	return func() tea.Msg {
		rows, err := svc.IssueRows(ctx, q)
		return issuesLoadedMsg{toolID: q.ToolID, rows: rows, err: err}
	}
}
