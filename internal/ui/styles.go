package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.Color("205")
	dimColor    = lipgloss.Color("241")
	textColor   = lipgloss.Color("252")
	upColor     = lipgloss.Color("42")
	downColor   = lipgloss.Color("196")

	titleStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Padding(0, 1).
			Underline(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(accentColor).
			Padding(0, 1)

	itemStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	activeLyricStyle = lipgloss.NewStyle().
				Foreground(accentColor).
				Bold(true)

	playerBarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)

	narrationBadge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("99")).
			Padding(0, 1)

	upStyle   = lipgloss.NewStyle().Foreground(upColor)
	downStyle = lipgloss.NewStyle().Foreground(downColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Padding(0, 1)
)
