package browser

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles for the browser.
type Styles struct {
	Header lipgloss.Style
	Help   lipgloss.Style
	Status lipgloss.Style
	Cursor lipgloss.Style
	Marked lipgloss.Style
	Dir    lipgloss.Style
	Normal lipgloss.Style
	Footer lipgloss.Style
}

// DefaultStyles returns the default color scheme.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		Help:   lipgloss.NewStyle().Faint(true),
		Status: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Cursor: lipgloss.NewStyle().Reverse(true).Bold(true),
		Marked: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Dir:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		Normal: lipgloss.NewStyle(),
		Footer: lipgloss.NewStyle().Faint(true),
	}
}
