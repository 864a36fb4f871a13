package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/waftester/contractfuzz/pkg/oracle"
)

// Color palette
var (
	Primary = lipgloss.Color("#7D56F4")
	Muted   = lipgloss.Color("#6B7280")

	Success = lipgloss.Color("#00D26A")
	Warning = lipgloss.Color("#FFB800")
	Error   = lipgloss.Color("#FF3838")
	Skipped = lipgloss.Color("#4D96FF")

	// HTTP status code colors
	Status2xx = lipgloss.Color("#00D26A")
	Status3xx = lipgloss.Color("#4D96FF")
	Status4xx = lipgloss.Color("#FFD93D")
	Status5xx = lipgloss.Color("#FF3838")
)

// Pre-configured styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(Primary).
			Padding(0, 1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Width(10)

	ValueStyle = lipgloss.NewStyle().
			Bold(true)

	BracketStyle = lipgloss.NewStyle().
			Foreground(Muted)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1)
)

// ResultStyle returns the style for a verdict.
func ResultStyle(r oracle.Result) lipgloss.Style {
	switch r {
	case oracle.Success:
		return lipgloss.NewStyle().Foreground(Success).Bold(true)
	case oracle.Warning:
		return lipgloss.NewStyle().Foreground(Warning).Bold(true)
	case oracle.Error:
		return lipgloss.NewStyle().Foreground(Error).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(Skipped)
	}
}

// StatusCodeStyle returns the style for an HTTP status code.
func StatusCodeStyle(code int) lipgloss.Style {
	switch {
	case code >= 500:
		return lipgloss.NewStyle().Foreground(Status5xx)
	case code >= 400:
		return lipgloss.NewStyle().Foreground(Status4xx)
	case code >= 300:
		return lipgloss.NewStyle().Foreground(Status3xx)
	default:
		return lipgloss.NewStyle().Foreground(Status2xx)
	}
}
