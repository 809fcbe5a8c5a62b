package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	canvas lipgloss.Style
	stats  lipgloss.Style
	header lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	graph  lipgloss.Style
	help   lipgloss.Style
	good   lipgloss.Style
	warn   lipgloss.Style
	bad    lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		canvas: lipgloss.NewStyle().Foreground(t.Primary).Padding(1, 2),
		stats: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(1, 2).
			Width(48),
		header: lipgloss.NewStyle().Bold(true).Foreground(t.Primary).MarginBottom(1),
		label:  lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value:  lipgloss.NewStyle().Foreground(t.Text).Bold(true),
		graph:  lipgloss.NewStyle().Foreground(t.Accent).Padding(1, 0),
		help:   lipgloss.NewStyle().Foreground(t.Muted).Italic(true).MarginTop(1),
		good:   lipgloss.NewStyle().Bold(true).Foreground(t.Good),
		warn:   lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		bad:    lipgloss.NewStyle().Bold(true).Foreground(t.Bad),
	}
}

// progressBar colors by how much is left.
func (s styles) progressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case fraction > 0.5:
		return s.good.Render(bar)
	case fraction > 0.15:
		return s.warn.Render(bar)
	default:
		return s.bad.Render(bar)
	}
}

func (s styles) separator(width int) string {
	mid := width / 2
	return s.help.UnsetMarginTop().UnsetItalic().Render(
		strings.Repeat("─", mid-3) + " ◆ " + strings.Repeat("─", width-mid-3))
}
