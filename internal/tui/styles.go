package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle        = lipgloss.NewStyle().Bold(true)
	helpStyle         = lipgloss.NewStyle().Faint(true)
	errorStyle        = lipgloss.NewStyle().Bold(true)
	paneStyle         = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	selectedPaneStyle = lipgloss.NewStyle().Border(lipgloss.ThickBorder()).Padding(0, 1)
	diffInsertStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Underline(true)
	diffDeleteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Strikethrough(true)
)
