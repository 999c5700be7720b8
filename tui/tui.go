// Package tui is the interactive watch console.
package tui

import (
	"context"

	"github.com/anisan-cli/anistream/player"
	"github.com/anisan-cli/anistream/session"
	tea "github.com/charmbracelet/bubbletea"
)

// Options configures the console.
type Options struct {
	ContentID   string
	Preferences session.Preferences
	Controller  *session.Controller
	// Updates carries every state the controller publishes.
	Updates <-chan session.State
	// Player is optional; without it the console only shows the stream.
	Player player.Player
}

// Run starts the console and blocks until the user quits.
func Run(ctx context.Context, options *Options) error {
	bubble := newBubble(ctx, options)
	_, err := tea.NewProgram(bubble, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
