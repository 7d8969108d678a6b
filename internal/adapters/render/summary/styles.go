package summary

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	ok      lipgloss.Style
	failed  lipgloss.Style
	detail  lipgloss.Style
	footer  lipgloss.Style
	banner  lipgloss.Style
	tagline lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		failed:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		detail:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		footer:  lipgloss.NewStyle().Faint(true).MarginTop(1),
		banner:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		tagline: lipgloss.NewStyle().Faint(true),
	}
}
