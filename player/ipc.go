package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

type ipcCommand struct {
	Command []any `json:"command"`
}

type ipcResponse struct {
	Data  any    `json:"data"`
	Error string `json:"error"`
	Event string `json:"event"`
}

const (
	maxRetries   = 3
	retryDelay   = 100 * time.Millisecond
	readDeadline = time.Second
)

// sendCommand issues one JSON-IPC command, retrying transient socket errors.
func (m *MPV) sendCommand(command ...any) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelay)
		}

		result, err := doSendCommand(m.socketPath, command)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("ipc command failed after %d attempts: %w", maxRetries, lastErr)
}

func doSendCommand(socketPath string, command []any) (any, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	payload, err := json.Marshal(ipcCommand{Command: command})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	// mpv may interleave asynchronous events before the reply.
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var resp ipcResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			return nil, fmt.Errorf("unmarshal: %w", err)
		}
		if resp.Event != "" {
			continue
		}
		if resp.Error != "" && resp.Error != "success" {
			return nil, fmt.Errorf("mpv error: %s", resp.Error)
		}
		return resp.Data, nil
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return nil, fmt.Errorf("read: connection closed")
}
