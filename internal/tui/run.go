package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/redactyl/piiscan/internal/types"
)

// Run starts the browser in the alternate screen and blocks until it exits.
func Run(findings []types.FileFinding, opts Options) error {
	m := New(findings, opts, LoadPrefs())
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
