package cli

import (
	"context"
	"errors"

	"warnboard/internal/core/ports"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the dashboard of jobName until the user quits or ctx ends.
func Run(ctx context.Context, svc ports.DashboardService, jobName string, maxRows int) error {
	m := newModel(ctx, svc, jobName, maxRows)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
