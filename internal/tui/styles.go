package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent      = lipgloss.Color("#8BC34A")
	destructive = lipgloss.Color("#e53935")
	warning     = lipgloss.Color("#FFC107")
	muted       = lipgloss.Color("#6b7785")
)

type styles struct {
	title     lipgloss.Style
	tab       lipgloss.Style
	activeTab lipgloss.Style
	author    lipgloss.Style
	meta      lipgloss.Style
	badge     lipgloss.Style
	post      lipgloss.Style
	selected  lipgloss.Style
	status    lipgloss.Style
	errStatus lipgloss.Style
	help      lipgloss.Style
	counter   lipgloss.Style
	overLimit lipgloss.Style
	dialog    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(accent),
		tab:       lipgloss.NewStyle().Foreground(muted).Padding(0, 1),
		activeTab: lipgloss.NewStyle().Bold(true).Underline(true).Padding(0, 1),
		author:    lipgloss.NewStyle().Bold(true),
		meta:      lipgloss.NewStyle().Foreground(muted),
		badge:     lipgloss.NewStyle().Foreground(warning).Italic(true),
		post:      lipgloss.NewStyle().PaddingLeft(2),
		selected: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(accent).
			PaddingLeft(1),
		status:    lipgloss.NewStyle().Foreground(accent),
		errStatus: lipgloss.NewStyle().Foreground(destructive),
		help:      lipgloss.NewStyle().Foreground(muted),
		counter:   lipgloss.NewStyle().Foreground(muted),
		overLimit: lipgloss.NewStyle().Foreground(destructive).Bold(true),
		dialog: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(destructive).
			Padding(1, 2),
	}
}
