package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	label     lipgloss.Style
	balance   lipgloss.Style
	zone      lipgloss.Style
	detail    lipgloss.Style
	warning   lipgloss.Style
	advisory  lipgloss.Style
	hint      lipgloss.Style
	section   lipgloss.Style
	empty     lipgloss.Style
	stateOK   lipgloss.Style
	stateWait lipgloss.Style
	stateBad  lipgloss.Style
	stateIdle lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		label:     lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		balance:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		zone:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("159")),
		detail:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		advisory:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		hint:      lipgloss.NewStyle().Faint(true),
		section:   lipgloss.NewStyle().MarginTop(1),
		empty:     lipgloss.NewStyle().Faint(true),
		stateOK:   lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		stateWait: lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
		stateBad:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		stateIdle: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}
