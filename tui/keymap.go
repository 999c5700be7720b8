package tui

import (
	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/style"
	"github.com/charmbracelet/bubbles/key"
)

// statefulKeymap only advertises the bindings that apply to the current state.
type statefulKeymap struct {
	state state

	quit, forceQuit,
	retry,
	failover,
	stall,
	play,
	showHelp key.Binding
}

func (k *statefulKeymap) setState(newState state) {
	k.state = newState
}

func newStatefulKeymap() *statefulKeymap {
	return &statefulKeymap{
		quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		forceQuit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d"),
			key.WithHelp("ctrl+c", "quit"),
		),
		retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "resolve again"),
		),
		failover: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp(style.Fg(color.Orange)("f"), style.Fg(color.Orange)("next mirror")),
		),
		stall: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "report stall"),
		),
		play: key.NewBinding(
			key.WithKeys("enter", "p"),
			key.WithHelp("enter", "play"),
		),
		showHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

func (k *statefulKeymap) help() ([]key.Binding, []key.Binding) {
	h := func(bindings ...key.Binding) []key.Binding {
		return bindings
	}

	switch k.state {
	case resolvingState:
		return h(k.forceQuit), h(k.forceQuit)
	case readyState:
		return h(k.play, k.failover, k.quit, k.showHelp), h(k.play, k.failover, k.stall, k.retry, k.quit)
	case errorState:
		return h(k.retry, k.quit), h(k.retry, k.quit)
	default:
		return h(k.quit), h(k.quit)
	}
}

// ShortHelp implements help.KeyMap.
func (k *statefulKeymap) ShortHelp() []key.Binding {
	short, _ := k.help()
	return short
}

// FullHelp implements help.KeyMap.
func (k *statefulKeymap) FullHelp() [][]key.Binding {
	_, full := k.help()
	return [][]key.Binding{full}
}
