package report

import (
	"github.com/Veraticus/adoption-forecast/internal/cli"
	"github.com/charmbracelet/lipgloss"
)

// Styles contains the styling used by console reports.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Header   lipgloss.Style
	Cell     lipgloss.Style
	Label    lipgloss.Style
	Border   lipgloss.Style
	Positive lipgloss.Style
	Negative lipgloss.Style
}

// NewStyles creates a new Styles instance with default styling.
func NewStyles() *Styles {
	s := &Styles{
		Title:    cli.TitleStyle,
		Subtitle: cli.SubtitleStyle,
	}

	s.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.PrimaryColor).
		Padding(0, 1)

	s.Cell = lipgloss.NewStyle().
		Padding(0, 1).
		Align(lipgloss.Right)

	s.Label = lipgloss.NewStyle().
		Padding(0, 1).
		Align(lipgloss.Left)

	s.Border = lipgloss.NewStyle().
		Foreground(cli.SubtleColor)

	s.Positive = s.Label.Foreground(cli.SuccessColor)
	s.Negative = s.Label.Foreground(cli.ErrorColor)

	return s
}
