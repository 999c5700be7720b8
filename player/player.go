// Package player launches an external media player for a resolved stream
// and turns its buffering events into network telemetry.
package player

import (
	"fmt"
	"time"
)

// Player is an external playback process.
type Player interface {
	// Play starts playback of url. A running instance loads the new file.
	Play(url, title string) error
	// Observe streams property changes to callback until the player exits.
	Observe(callback EventCallback) error
	// Close terminates the player and releases its socket.
	Close() error
	// Wait is closed when the player process exits.
	Wait() <-chan struct{}
}

// Telemetry receives buffering and throughput feedback from a player.
type Telemetry interface {
	ReportBufferState(bufferEnd, current float64)
	ReportStall(d time.Duration)
	ReportBuffering()
	// ReportThroughput receives the download rate in bits per second.
	ReportThroughput(bitsPerSecond float64)
}

// New returns the player registered under name.
func New(name string, opts Options) (Player, error) {
	switch name {
	case "mpv", "":
		return NewMPV(opts), nil
	default:
		return nil, fmt.Errorf("unsupported player %q", name)
	}
}
