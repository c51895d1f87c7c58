package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#5FAFAF")
	secondaryColor = lipgloss.Color("#666666")
	successColor   = lipgloss.Color("#87AF87")
	warnColor      = lipgloss.Color("#D7AF5F")
	errorColor     = lipgloss.Color("#AF5F5F")

	// TitleStyle for headers
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)

	// SubtleStyle for hints and secondary columns
	SubtleStyle = lipgloss.NewStyle().Foreground(secondaryColor)

	// UserStyle prefixes the user's own messages
	UserStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)

	// SuccessStyle for applied changes and completed tasks
	SuccessStyle = lipgloss.NewStyle().Foreground(successColor)

	// WarnStyle for skipped operations and high priority
	WarnStyle = lipgloss.NewStyle().Foreground(warnColor)

	// ErrorStyle for failures
	ErrorStyle = lipgloss.NewStyle().Foreground(errorColor)
)
