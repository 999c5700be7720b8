package player

import (
	"crypto/rand"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/log"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
)

// Options configures an MPV player.
type Options struct {
	// Binary defaults to "mpv" on PATH.
	Binary    string
	UserAgent string
}

// MPV drives mpv through its JSON-IPC socket.
type MPV struct {
	opts       Options
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{}
	listener   *EventListener
	mu         sync.Mutex
}

// NewMPV creates an MPV player. Nothing is started until Play.
func NewMPV(opts Options) *MPV {
	if opts.Binary == "" {
		opts.Binary = "mpv"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = constant.UserAgent
	}

	return &MPV{
		opts:   opts,
		exited: make(chan struct{}),
	}
}

// Play starts mpv on rawURL, or replaces the current file when mpv is
// already running.
func (m *MPV) Play(rawURL, title string) error {
	target, err := sanitizeMediaTarget(rawURL)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}
	title = sanitizeTitle(title)

	if m.running() {
		if _, err := m.sendCommand("loadfile", target, "replace"); err != nil {
			return fmt.Errorf("load %s: %w", target, err)
		}
		return m.set("force-media-title", title)
	}

	if m.socketPath == "" {
		suffix := make([]byte, 4)
		if _, err := rand.Read(suffix); err != nil {
			return fmt.Errorf("generate socket name: %w", err)
		}
		m.socketPath = filepath.Join(os.TempDir(), fmt.Sprintf("%s-%x.sock", constant.App, suffix))
	}

	m.cmd = exec.Command(m.opts.Binary, m.args(target, title)...)
	m.cmd.SysProcAttr = sysProcAttr()

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", m.opts.Binary, err)
	}

	m.exited = make(chan struct{})
	go func() {
		_ = m.cmd.Wait()
		close(m.exited)
	}()

	if err := m.waitForSocket(); err != nil {
		select {
		case <-m.exited:
		default:
			log.Warn("killing mpv: socket never became ready")
			_ = killProcess(m.cmd)
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	return nil
}

// args leaves video output and hwdec to the user's mpv.conf.
func (m *MPV) args(target, title string) []string {
	return []string{
		"--no-terminal",
		"--really-quiet",
		"--input-ipc-server=" + m.socketPath,
		"--force-media-title=" + title,
		"--title=" + title,
		"--force-window=yes",
		"--idle=yes",
		"--cache=yes",
		"--user-agent=" + m.opts.UserAgent,
		target,
	}
}

// Observe subscribes callback to mpv's buffering related properties.
func (m *MPV) Observe(callback EventCallback) error {
	if m.socketPath == "" {
		return fmt.Errorf("mpv is not running")
	}

	if m.listener != nil {
		m.listener.Stop()
	}
	m.listener = NewEventListener(m.socketPath, callback)
	return m.listener.Start()
}

// Wait is closed when the mpv process exits.
func (m *MPV) Wait() <-chan struct{} {
	return m.exited
}

func (m *MPV) waitForSocket() error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		select {
		case <-m.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

func (m *MPV) running() bool {
	if m.socketPath == "" || m.cmd == nil {
		return false
	}

	select {
	case <-m.exited:
		return false
	default:
	}

	_, err := m.sendCommand("get_property", "pid")
	return err == nil
}

// Close quits mpv, killing it if it does not exit in time.
func (m *MPV) Close() error {
	if m.listener != nil {
		m.listener.Stop()
		m.listener = nil
	}

	if m.socketPath == "" {
		return nil
	}

	_, _ = m.sendCommand("quit")

	select {
	case <-m.exited:
	case <-time.After(3 * time.Second):
		_ = killProcess(m.cmd)
	}

	_ = os.Remove(m.socketPath)
	return nil
}

func (m *MPV) set(property string, value any) error {
	_, err := m.sendCommand("set_property", property, value)
	return err
}

// sanitizeMediaTarget rejects anything mpv could read as a flag and
// anything that is not an http(s) URL or a local path.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty URL")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in URL")
	}

	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("url must not start with '-'")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}

func sanitizeTitle(title string) string {
	t := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ", "\x00", "").Replace(title)
	return strings.TrimSpace(t)
}
