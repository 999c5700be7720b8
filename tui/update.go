package tui

import (
	"errors"
	"time"

	"github.com/anisan-cli/anistream/session"
	"github.com/anisan-cli/anistream/source"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (b *statefulBubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
		return b, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinnerC, cmd = b.spinnerC.Update(msg)
		return b, cmd

	case stateMsg:
		b.session = session.State(msg)
		if b.state == errorState && errors.Is(b.lastError, source.ErrOffline) && !b.session.Offline {
			b.lastError = nil
			b.setState(resolvingState)
			return b, tea.Batch(b.waitForUpdate(), b.spinnerC.Tick, b.resolve())
		}
		if b.session.Loading {
			b.setState(resolvingState)
		} else if b.session.Playable() {
			b.setState(readyState)
		}
		return b, b.waitForUpdate()

	case resolvedMsg:
		if msg.err != nil && !ignorable(msg.err) {
			b.raiseError(msg.err)
			return b, nil
		}
		if msg.err == nil {
			b.session = b.options.Controller.State()
			b.setState(readyState)
			// A failover while playing swaps the stream in place.
			if b.playing != "" && b.playing != b.session.StreamURL {
				return b, b.play(b.session.StreamURL)
			}
		}
		return b, nil

	case playerStartedMsg:
		first := b.playing == ""
		b.playing = msg.url
		if first {
			return b, b.waitForPlayerExit()
		}
		return b, nil

	case playerFailedMsg:
		b.setState(resolvingState)
		return b, tea.Batch(b.failover(), b.waitForPlayerFailure())

	case playerExitedMsg:
		b.playing = ""
		return b, nil

	case error:
		b.raiseError(msg)
		return b, nil

	case tea.KeyMsg:
		return b.handleKey(msg)
	}

	return b, nil
}

func (b *statefulBubble) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, b.keymap.forceQuit):
		return b, tea.Quit
	case b.state == resolvingState:
		return b, nil
	case key.Matches(msg, b.keymap.quit):
		return b, tea.Quit
	case key.Matches(msg, b.keymap.showHelp):
		b.helpC.ShowAll = !b.helpC.ShowAll
	case key.Matches(msg, b.keymap.retry):
		b.lastError = nil
		b.setState(resolvingState)
		return b, tea.Batch(b.spinnerC.Tick, b.resolve())
	case b.state != readyState:
		return b, nil
	case key.Matches(msg, b.keymap.failover):
		b.setState(resolvingState)
		return b, tea.Batch(b.spinnerC.Tick, b.failover())
	case key.Matches(msg, b.keymap.stall):
		b.stalls++
		b.session = b.options.Controller.ReportStall(time.Second)
	case key.Matches(msg, b.keymap.play):
		return b, b.play(b.session.StreamURL)
	}

	return b, nil
}
