// Package color holds the terminal colors used by the CLI and the console.
package color

import "github.com/charmbracelet/lipgloss"

// New initializes a lipgloss.Color from a string value.
func New(value string) lipgloss.Color {
	return lipgloss.Color(value)
}

// ANSI colors, rendered by the terminal's own theme.
var (
	Red      = New("1")
	Green    = New("2")
	Yellow   = New("3")
	Blue     = New("4")
	Purple   = New("5")
	Cyan     = New("6")
	HiRed    = New("9")
	HiPurple = New("13")
)

// 256-color accents.
var (
	Orange  = New("#ffb703")
	Pink    = New("205")
	Crimson = New("196")
)

// Tier returns the color of a playback tier name, from red for "lowest"
// to green for "full".
func Tier(name string) lipgloss.Color {
	switch name {
	case "full":
		return Green
	case "hd":
		return Cyan
	case "sd":
		return Yellow
	case "low":
		return Orange
	default:
		return Red
	}
}
