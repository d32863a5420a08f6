package control

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/skontar/presentation-switch/internal/engine"
)

const (
	// SocketFileName is the filename of the control socket within the runtime dir.
	SocketFileName = "control.sock"

	// Action names supported by the control protocol.
	ActionStatusGet  = "status.get"
	ActionModeSet    = "mode.set"
	ActionHistoryGet = "history.get"
	ActionWindowsGet = "windows.get"
	ActionReload     = "reload"

	// Response statuses.
	StatusOK    = "ok"
	StatusError = "error"
)

// Mode states accepted by mode.set.
const (
	ModeOn   = "on"
	ModeOff  = "off"
	ModeAuto = "auto"
)

// Request represents a control API request.
type Request struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// Response represents a control API response.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// StatusResult is the daemon status payload.
type StatusResult = engine.Status

// HistoryResult carries the recorded ticks, oldest first.
type HistoryResult struct {
	Ticks []engine.TickRecord `json:"ticks"`
}

// WindowSummary is one observed window in the daemon's last snapshot.
type WindowSummary struct {
	ID         string   `json:"id"`
	DesktopID  string   `json:"desktopId"`
	PID        string   `json:"pid"`
	Title      string   `json:"title,omitempty"`
	Name       string   `json:"name,omitempty"`
	Classes    []string `json:"classes,omitempty"`
	CPU        *float64 `json:"cpu,omitempty"`
	Fullscreen bool     `json:"fullscreen,omitempty"`
}

// WindowsResult carries the daemon's last desktop snapshot.
type WindowsResult struct {
	Windows []WindowSummary `json:"windows"`
}

// DefaultSocketPath returns the expected location of the control socket.
func DefaultSocketPath() (string, error) {
	if env := os.Getenv("PRESENTATION_SWITCH_SOCKET"); env != "" {
		return env, nil
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	base := runtimeDir
	if base == "" {
		base = os.TempDir()
		if base == "" {
			return "", errors.New("no runtime directory available")
		}
	}
	return filepath.Join(base, "presentation-switch", SocketFileName), nil
}
