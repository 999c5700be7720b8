package failover

// State is the lifecycle position of a Selector.
type State int

const (
	StateIdle State = iota
	StateSelecting
	StateSelected
	StatePlaybackFailed
	StateExhausted
	StateReset
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelecting:
		return "selecting"
	case StateSelected:
		return "selected"
	case StatePlaybackFailed:
		return "playback-failed"
	case StateExhausted:
		return "exhausted"
	case StateReset:
		return "reset"
	default:
		return "unknown"
	}
}

// EventKind identifies what drives a transition.
type EventKind int

const (
	// EventContentChanged discards the failed set and returns to idle.
	EventContentChanged EventKind = iota
	// EventSelectRequested picks the next mirror.
	EventSelectRequested
	// EventPlaybackFailed marks a mirror as failed.
	EventPlaybackFailed
)

func (k EventKind) String() string {
	switch k {
	case EventContentChanged:
		return "content-changed"
	case EventSelectRequested:
		return "select-requested"
	case EventPlaybackFailed:
		return "playback-failed"
	default:
		return "unknown"
	}
}
