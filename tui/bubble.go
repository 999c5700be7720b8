package tui

import (
	"context"
	"errors"
	"time"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/netquality"
	"github.com/anisan-cli/anistream/player"
	"github.com/anisan-cli/anistream/session"
	"github.com/anisan-cli/anistream/util"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type (
	stateMsg         session.State
	resolvedMsg      struct{ err error }
	playerStartedMsg struct{ url string }
	playerFailedMsg  struct{ reason string }
	playerExitedMsg  struct{}
)

// statefulBubble is the console model.
type statefulBubble struct {
	ctx     context.Context
	state   state
	keymap  *statefulKeymap
	options *Options

	spinnerC spinner.Model
	helpC    help.Model

	session   session.State
	lastError error
	playing   string
	stalls    int

	playerFailures chan string

	width, height int
}

func newBubble(ctx context.Context, options *Options) *statefulBubble {
	b := &statefulBubble{
		ctx:            ctx,
		keymap:         newStatefulKeymap(),
		options:        options,
		helpC:          help.New(),
		playerFailures: make(chan string, 1),
	}

	b.spinnerC = spinner.New()
	b.spinnerC.Spinner = spinner.Dot
	b.spinnerC.Style = lipgloss.NewStyle().Foreground(color.Pink)

	b.setState(resolvingState)
	return b
}

func (b *statefulBubble) Init() tea.Cmd {
	return tea.Batch(b.spinnerC.Tick, b.resolve(), b.waitForUpdate(), b.waitForPlayerFailure())
}

func (b *statefulBubble) setState(s state) {
	b.state = s
	b.keymap.setState(s)
}

func (b *statefulBubble) raiseError(err error) {
	b.lastError = err
	b.setState(errorState)
}

func (b *statefulBubble) resize(width, height int) {
	x, y := paddingStyle.GetFrameSize()
	b.width = width - x
	b.height = height - y
	b.helpC.Width = b.width
}

func (b *statefulBubble) resolve() tea.Cmd {
	return func() tea.Msg {
		_, err := b.options.Controller.Resolve(b.ctx, b.options.ContentID, b.options.Preferences)
		return resolvedMsg{err: err}
	}
}

func (b *statefulBubble) failover() tea.Cmd {
	return func() tea.Msg {
		_, err := b.options.Controller.ReportPlaybackError(b.ctx)
		return resolvedMsg{err: err}
	}
}

func (b *statefulBubble) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		select {
		case s, ok := <-b.options.Updates:
			if !ok {
				return nil
			}
			return stateMsg(s)
		case <-b.ctx.Done():
			return nil
		}
	}
}

func (b *statefulBubble) waitForPlayerFailure() tea.Cmd {
	return func() tea.Msg {
		select {
		case reason := <-b.playerFailures:
			return playerFailedMsg{reason: reason}
		case <-b.ctx.Done():
			return nil
		}
	}
}

// play hands url to the player and wires its buffering events back into
// the controller.
func (b *statefulBubble) play(url string) tea.Cmd {
	p := b.options.Player
	if p == nil || url == "" {
		return nil
	}

	title := b.options.ContentID
	if name := b.session.Video.Name; name != "" {
		title = util.FileStem(name)
	}

	return func() tea.Msg {
		if err := p.Play(url, title); err != nil {
			return err
		}

		bridge := player.NewBridge(telemetry{b.options.Controller})
		bridge.OnError = func(reason string) {
			select {
			case b.playerFailures <- reason:
			default:
			}
		}
		if err := p.Observe(bridge.Handle); err != nil {
			log.Warnf("player telemetry unavailable: %v", err)
		}

		return playerStartedMsg{url: url}
	}
}

func (b *statefulBubble) waitForPlayerExit() tea.Cmd {
	p := b.options.Player
	if p == nil {
		return nil
	}
	return func() tea.Msg {
		<-p.Wait()
		return playerExitedMsg{}
	}
}

// ignorable reports errors that only mean a newer resolution took over.
func ignorable(err error) bool {
	return errors.Is(err, session.ErrStaleSession) || errors.Is(err, context.Canceled)
}

// telemetry adapts the controller to player.Telemetry.
type telemetry struct {
	c *session.Controller
}

var _ player.Telemetry = telemetry{}

func (t telemetry) ReportBufferState(bufferEnd, current float64) {
	t.c.ReportBufferState(bufferEnd, current)
}

func (t telemetry) ReportStall(d time.Duration) {
	t.c.ReportStall(d)
}

func (t telemetry) ReportBuffering() {
	t.c.ReportBuffering()
}

func (t telemetry) ReportThroughput(bitsPerSecond float64) {
	t.c.ReportSample(netquality.Sample{Bandwidth: bitsPerSecond})
}
