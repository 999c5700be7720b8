package player

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/anisan-cli/anistream/log"
)

// EventCallback receives an mpv property name and its new value. Other mpv
// events are delivered with the event name and the raw payload.
type EventCallback func(property string, data any)

// Observed mpv properties.
const (
	PropTimePos        = "time-pos"
	PropCacheTime      = "demuxer-cache-time"
	PropPausedForCache = "paused-for-cache"
	PropCacheSpeed     = "cache-speed"
	PropEOF            = "eof-reached"
)

var observed = []string{PropTimePos, PropCacheTime, PropPausedForCache, PropCacheSpeed, PropEOF}

// EventListener keeps a dedicated IPC connection open and forwards
// property-change notifications.
type EventListener struct {
	socketPath string
	conn       net.Conn
	callback   EventCallback
	stopCh     chan struct{}
	mu         sync.Mutex
	listening  bool
}

// NewEventListener creates a listener for socketPath.
func NewEventListener(socketPath string, callback EventCallback) *EventListener {
	return &EventListener{
		socketPath: socketPath,
		callback:   callback,
		stopCh:     make(chan struct{}),
	}
}

// Start registers the observers and starts the read loop.
func (el *EventListener) Start() error {
	el.mu.Lock()
	defer el.mu.Unlock()

	if el.listening {
		return nil
	}

	conn, err := net.Dial("unix", el.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}

	// Observers are bound to the connection that registered them.
	for i, name := range observed {
		payload, _ := json.Marshal(ipcCommand{Command: []any{"observe_property", i + 1, name}})
		if _, err := conn.Write(append(payload, '\n')); err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}

	el.conn = conn
	el.listening = true
	go el.readLoop()

	log.Infof("mpv event listener started on %s", el.socketPath)
	return nil
}

// Stop closes the connection and ends the read loop.
func (el *EventListener) Stop() {
	el.mu.Lock()
	defer el.mu.Unlock()

	if !el.listening {
		return
	}

	close(el.stopCh)
	if el.conn != nil {
		el.conn.Close()
	}
	el.listening = false
}

func (el *EventListener) readLoop() {
	defer func() {
		el.mu.Lock()
		el.listening = false
		el.mu.Unlock()
	}()

	reader := bufio.NewReader(el.conn)
	var pending []byte
	for {
		select {
		case <-el.stopCh:
			return
		default:
		}

		if err := el.conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
			return
		}

		chunk, err := reader.ReadBytes('\n')
		pending = append(pending, chunk...)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			select {
			case <-el.stopCh:
			default:
				log.Warnf("event listener read error: %v", err)
			}
			return
		}

		dispatchEvent(pending, el.callback)
		pending = pending[:0]
	}
}

// dispatchEvent decodes one newline-delimited mpv message.
func dispatchEvent(line []byte, callback EventCallback) {
	if callback == nil {
		return
	}

	var event map[string]any
	if err := json.Unmarshal(line, &event); err != nil {
		return
	}

	eventType, ok := event["event"].(string)
	if !ok {
		return
	}

	if eventType == "property-change" {
		if name, _ := event["name"].(string); name != "" {
			callback(name, event["data"])
		}
		return
	}

	callback(eventType, event)
}
