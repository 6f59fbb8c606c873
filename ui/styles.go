package ui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	title    lipgloss.Style
	dirty    lipgloss.Style
	cursor   lipgloss.Style
	selected lipgloss.Style
	muted    lipgloss.Style
	accent   lipgloss.Style
	status   lipgloss.Style
	err      lipgloss.Style
	prompt   lipgloss.Style
	panel    lipgloss.Style
}

func newTheme() theme {
	return theme{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		dirty:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		cursor:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		selected: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		accent:   lipgloss.NewStyle().Foreground(lipgloss.Color("81")),
		status:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Italic(true),
		err:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		prompt:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		panel:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1),
	}
}
