package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/skontar/presentation-switch/internal/control"
	"github.com/skontar/presentation-switch/internal/engine"
)

const (
	// defaultTimeout is used when the caller does not provide a context deadline.
	defaultTimeout = 3 * time.Second
)

// Client talks to the running daemon over its control socket.
type Client struct {
	socketPath string
}

type (
	// Status is the daemon status payload.
	Status = control.StatusResult
	// HistoryResult carries the recorded ticks, oldest first.
	HistoryResult = control.HistoryResult
	// TickRecord is one recorded check result.
	TickRecord = engine.TickRecord
	// WindowSummary is one observed window in the daemon's last snapshot.
	WindowSummary = control.WindowSummary
	// WindowsResult carries the daemon's last desktop snapshot.
	WindowsResult = control.WindowsResult
)

// New creates a client that connects to the provided socket path. When path is
// empty, the default runtime path is used.
func New(path string) (*Client, error) {
	if path == "" {
		var err error
		path, err = control.DefaultSocketPath()
		if err != nil {
			return nil, err
		}
	}
	return &Client{socketPath: path}, nil
}

// Status retrieves the daemon's mode, counter, and metrics.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var status Status
	if err := c.do(ctx, control.Request{Action: control.ActionStatusGet}, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// SetMode forces the presentation mode on or off, or returns control to the
// automatic hysteresis loop.
func (c *Client) SetMode(ctx context.Context, modeState string) (Status, error) {
	switch modeState {
	case control.ModeOn, control.ModeOff, control.ModeAuto:
	default:
		return Status{}, fmt.Errorf("invalid mode state %q", modeState)
	}
	payload := control.Request{Action: control.ActionModeSet, Params: map[string]any{"state": modeState}}
	var status Status
	if err := c.do(ctx, payload, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// History retrieves the daemon's recorded ticks.
func (c *Client) History(ctx context.Context) (HistoryResult, error) {
	var result HistoryResult
	if err := c.do(ctx, control.Request{Action: control.ActionHistoryGet}, &result); err != nil {
		return HistoryResult{}, err
	}
	return result, nil
}

// Windows retrieves the daemon's last desktop snapshot.
func (c *Client) Windows(ctx context.Context) (WindowsResult, error) {
	var result WindowsResult
	if err := c.do(ctx, control.Request{Action: control.ActionWindowsGet}, &result); err != nil {
		return WindowsResult{}, err
	}
	return result, nil
}

// Reload asks the daemon to reload its configuration.
func (c *Client) Reload(ctx context.Context) error {
	return c.do(ctx, control.Request{Action: control.ActionReload}, nil)
}

func (c *Client) do(ctx context.Context, req control.Request, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("dial control socket: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	var resp control.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != control.StatusOK {
		if resp.Error == "" {
			resp.Error = "unknown control error"
		}
		return errors.New(resp.Error)
	}
	if out == nil || resp.Data == nil {
		return nil
	}
	data, err := json.Marshal(resp.Data)
	if err != nil {
		return fmt.Errorf("re-encode response data: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
