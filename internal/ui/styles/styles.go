package styles

import "github.com/charmbracelet/lipgloss"

// Lip Gloss styles for operator-facing CLI output. Protocol traffic on stdout
// is never styled.

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff5fd2")).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	CategoryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5fd7ff")).
			MarginTop(1)

	ToolNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff"))

	ParamStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d7af5f"))

	DescriptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a8a8a8")).
				PaddingLeft(4)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff005f")).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ff5f")).
			Bold(true)

	// Key/value rows for status output.
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Width(14)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff"))
)
