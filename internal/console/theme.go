package console

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

type theme struct {
	title   lipgloss.Style
	label   lipgloss.Style
	focused lipgloss.Style
	help    lipgloss.Style
	status  lipgloss.Style
	errText lipgloss.Style
	modal   lipgloss.Style
	table   table.Styles
}

func defaultTheme() theme {
	accent := lipgloss.Color("39")
	muted := lipgloss.Color("241")

	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(muted).
		BorderBottom(true).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	return theme{
		title:   lipgloss.NewStyle().Bold(true).Foreground(accent),
		label:   lipgloss.NewStyle().Width(18),
		focused: lipgloss.NewStyle().Width(18).Bold(true).Foreground(accent),
		help:    lipgloss.NewStyle().Foreground(muted),
		status:  lipgloss.NewStyle().Foreground(muted),
		errText: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 2),
		table: ts,
	}
}
