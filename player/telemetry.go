package player

import (
	"sync"
	"time"
)

// Bridge turns mpv property changes into Telemetry calls.
type Bridge struct {
	mu        sync.Mutex
	telemetry Telemetry
	now       func() time.Time

	timePos    float64
	hasTimePos bool
	stalled    bool
	stallStart time.Time

	// OnError is called when mpv gives up on the current file.
	OnError func(reason string)
}

// NewBridge creates a Bridge reporting to t.
func NewBridge(t Telemetry) *Bridge {
	return &Bridge{telemetry: t, now: time.Now}
}

// Handle is an EventCallback.
func (b *Bridge) Handle(property string, data any) {
	switch property {
	case PropTimePos:
		if pos, ok := data.(float64); ok {
			b.mu.Lock()
			b.timePos, b.hasTimePos = pos, true
			b.mu.Unlock()
		}

	case PropCacheTime:
		end, ok := data.(float64)
		if !ok {
			return
		}
		b.mu.Lock()
		pos, known := b.timePos, b.hasTimePos
		b.mu.Unlock()
		if known {
			b.telemetry.ReportBufferState(end, pos)
		}

	case PropPausedForCache:
		paused, _ := data.(bool)
		b.mu.Lock()
		switch {
		case paused && !b.stalled:
			b.stalled, b.stallStart = true, b.now()
			b.mu.Unlock()
			b.telemetry.ReportBuffering()
		case !paused && b.stalled:
			d := b.now().Sub(b.stallStart)
			b.stalled = false
			b.mu.Unlock()
			b.telemetry.ReportStall(d)
		default:
			b.mu.Unlock()
		}

	case PropCacheSpeed:
		speed, ok := data.(float64)
		if !ok || speed < 0 {
			return
		}
		b.mu.Lock()
		stalled := b.stalled
		b.mu.Unlock()
		// A full cache stops downloading and reads zero.
		if speed == 0 && !stalled {
			return
		}
		b.telemetry.ReportThroughput(speed * 8)

	case "end-file":
		event, _ := data.(map[string]any)
		if reason, _ := event["reason"].(string); reason == "error" && b.OnError != nil {
			b.OnError(reason)
		}
	}
}
