// Package tui is the terminal board viewer. One terminal cell stands for
// cellW x cellH screen units, so pointer gestures map onto the same pan, zoom
// and drag rules as any other surface.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run opens the board in the alternate screen and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	applyColorProfilePreference()
	applyThemePreference()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m := newBoardModel(ctx, opts)
	_, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}
