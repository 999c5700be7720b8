package tui

import (
	"fmt"
	"strings"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/style"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"
)

var paddingStyle = lipgloss.NewStyle().Padding(1, 2)

func (b *statefulBubble) View() string {
	switch b.state {
	case resolvingState:
		return b.viewResolving()
	case readyState:
		return b.viewReady()
	case errorState:
		return b.viewError()
	default:
		return "Unknown state"
	}
}

func (b *statefulBubble) viewResolving() string {
	status := "Resolving " + b.options.ContentID
	if m := b.session.Mirror; m.ManifestRef != "" {
		status = "Trying " + m.String()
	}

	return b.renderLines(true, []string{
		style.Title("Resolving"),
		"",
		b.spinnerC.View() + " " + style.Truncate(b.width)(status),
	})
}

func (b *statefulBubble) viewReady() string {
	s := b.session

	origin := icon.Get(icon.Mirror) + " " + style.Fg(color.Purple)(s.Mirror.String())
	if s.Backup {
		origin = icon.Get(icon.Backup) + " " + style.Fg(color.Yellow)("backup provider")
	}

	lines := []string{
		style.Title("Stream"),
		"",
		origin,
		icon.Get(icon.Link) + " " + wrap.String(style.Fg(color.Cyan)(s.StreamURL), b.width),
		"",
		fmt.Sprintf("%s %s  %s %s %.2f",
			style.Faint("tier"), style.Tier(s.Tier),
			style.Faint("score"), style.Score(s.Score), s.Score,
		),
	}

	if s.Video.Name != "" {
		lines = append(lines, style.Faint("file")+" "+style.Truncate(b.width)(s.Video.Name))
	}
	if b.playing != "" {
		lines = append(lines, style.Fg(color.Green)("playing"))
	}
	if s.Exhausted {
		lines = append(lines, "", icon.Get(icon.Warn)+" "+style.Fg(color.Yellow)("every mirror failed once, retrying from the top"))
	}
	if s.Offline {
		lines = append(lines, "", icon.Get(icon.Offline)+" "+style.Fg(color.Red)("offline"))
	}
	if b.stalls > 0 {
		lines = append(lines, icon.Get(icon.Stall)+" "+style.Faint(fmt.Sprintf("%d stalls reported", b.stalls)))
	}

	return b.renderLines(true, lines)
}

func (b *statefulBubble) viewError() string {
	errorStyle := lipgloss.NewStyle().Foreground(color.Crimson).Bold(true)
	body := wrap.String(errorStyle.Render(b.lastError.Error()), b.width)

	return b.renderLines(true, []string{
		style.ErrorTitle("Error"),
		"",
		icon.Get(icon.Fail) + " Could not resolve a stream:",
		"",
		body,
	})
}

func (b *statefulBubble) renderLines(addHelp bool, lines []string) string {
	h := len(lines)
	l := strings.Join(lines, "\n")
	if addHelp {
		if b.height > h {
			l += strings.Repeat("\n", b.height-h)
		}
		l += b.helpC.View(b.keymap)
	}

	return paddingStyle.Render(l)
}
