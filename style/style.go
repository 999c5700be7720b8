// Package style provides a functional API for composing and applying lipgloss-based styles.
package style

import (
	"strings"

	"github.com/anisan-cli/anistream/color"
	"github.com/charmbracelet/lipgloss"
)

// New returns an empty lipgloss.Style used as a foundation for visual composition.
func New() lipgloss.Style {
	return lipgloss.NewStyle()
}

// Colored initializes a new style with the specified foreground and background colors.
func Colored(fg, bg lipgloss.Color) lipgloss.Style {
	return New().Foreground(fg).Background(bg)
}

// Fg returns a stateless rendering function that applies the specified foreground color to a string.
func Fg(c lipgloss.Color) func(string) string {
	return func(s string) string { return Colored(c, "").Render(s) }
}

// Truncate returns a rendering function that constrains the output string to a specified maximum width.
func Truncate(max int) func(string) string {
	return func(s string) string { return New().Width(max).Render(s) }
}

var (
	Faint = func(s string) string { return New().Faint(true).Render(s) }
	Bold  = func(s string) string { return New().Bold(true).Render(s) }
)

// Title renders a padded banner.
var Title = func(s string) string {
	return Colored(color.New("230"), color.New("62")).Padding(0, 1).Render(s)
}

// ErrorTitle renders a padded banner in error colors.
var ErrorTitle = func(s string) string {
	return Colored(color.New("230"), color.Red).Padding(0, 1).Render(s)
}

// Tier renders a playback tier name as a bold, tier-colored tag.
func Tier(name string) string {
	return New().Bold(true).Foreground(color.Tier(name)).Render(strings.ToUpper(name))
}

// Score renders a quality score in [0, 1] as a ten cell gauge.
func Score(score float64) string {
	filled := int(score*10 + 0.5)
	filled = max(0, min(10, filled))
	return Fg(color.Green)(strings.Repeat("■", filled)) + Faint(strings.Repeat("□", 10-filled))
}
