package ui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the TUI.
var (
	colorRed     = lipgloss.Color("#FF0000")
	colorGreen   = lipgloss.Color("#00FF00")
	colorYellow  = lipgloss.Color("#FFFF00")
	colorCyan    = lipgloss.Color("#00FFFF")
	colorGray    = lipgloss.Color("#666666")
	colorDimGray = lipgloss.Color("#444444")
	colorWhite   = lipgloss.Color("#FFFFFF")
)

// Base styles reused by the view.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	liveDotStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	idleDotStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	connectingStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	partialStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	segmentStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	simplifiedStyle = lipgloss.NewStyle().
			Foreground(colorCyan)

	glossStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	dividerStyle = lipgloss.NewStyle().
			Foreground(colorDimGray)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	footerDescStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	levelGreenStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	levelYellowStyle = lipgloss.NewStyle().
				Foreground(colorYellow)

	levelGrayStyle = lipgloss.NewStyle().
			Foreground(colorGray)
)
