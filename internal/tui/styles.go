package tui

import "github.com/charmbracelet/lipgloss"

// Colors
var (
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	text      = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#FAFAFA"}
	muted     = lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"}
	good      = lipgloss.AdaptiveColor{Light: "#3A7D44", Dark: "#73F59F"}
	bad       = lipgloss.AdaptiveColor{Light: "#C0392B", Dark: "#FF6B6B"}
)

// Text styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(highlight)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(text)

	mutedStyle = lipgloss.NewStyle().
			Foreground(muted)

	successStyle = lipgloss.NewStyle().
			Foreground(good)

	errorStyle = lipgloss.NewStyle().
			Foreground(bad)

	itemStyle = lipgloss.NewStyle().
			Foreground(text)

	selectedItemStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(highlight)

	keyBadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(good)

	footerStyle = lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 1)
)
