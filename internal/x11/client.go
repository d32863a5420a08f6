package x11

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/skontar/presentation-switch/internal/state"
	"github.com/skontar/presentation-switch/internal/util"
)

const defaultQueryTimeout = 30 * time.Second

// Client wraps the wmctrl/xprop/top shell-outs used to sample the desktop.
type Client struct {
	WmctrlBinary string
	XpropBinary  string
	TopBinary    string
	// QueryTimeout bounds each external query; a timeout surfaces as a
	// sampling error and the tick is skipped.
	QueryTimeout time.Duration

	logger *util.Logger
}

// NewClient returns a client using the binaries on PATH, tracing each query
// through the provided logger.
func NewClient(logger *util.Logger) *Client {
	return &Client{
		WmctrlBinary: "wmctrl",
		XpropBinary:  "xprop",
		TopBinary:    "top",
		QueryTimeout: defaultQueryTimeout,
		logger:       logger,
	}
}

func (c *Client) run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	if c.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.QueryTimeout)
		defer cancel()
	}
	start := time.Now()
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %s: %v: %s", binary, strings.Join(args, " "), err, stderr.String())
	}
	if c.logger != nil {
		c.logger.Tracef("%s %s: %d bytes in %s", binary, strings.Join(args, " "), stdout.Len(), time.Since(start).Round(time.Millisecond))
	}
	return stdout.Bytes(), nil
}

// ListWindows enumerates all top-level windows known to the window manager.
func (c *Client) ListWindows(ctx context.Context) ([]state.WindowInfo, error) {
	out, err := c.run(ctx, c.WmctrlBinary, "-l", "-p")
	if err != nil {
		return nil, err
	}
	return parseWindowList(string(out)), nil
}

// WindowProperties queries xprop for one window's fullscreen state and WM
// class list.
func (c *Client) WindowProperties(ctx context.Context, windowID string) (state.WindowProps, error) {
	out, err := c.run(ctx, c.XpropBinary, "-id", windowID)
	if err != nil {
		return state.WindowProps{}, err
	}
	return parseWindowProps(string(out)), nil
}

// Processes returns per-PID CPU usage and process names. top is asked for
// two iterations and only the second is used, so the CPU column reflects an
// instantaneous delta instead of the since-boot average.
func (c *Client) Processes(ctx context.Context) (map[string]state.Process, error) {
	out, err := c.run(ctx, c.TopBinary, "-b", "-n", "2")
	if err != nil {
		return nil, err
	}
	return parseProcessTable(string(out)), nil
}

var _ state.DataSource = (*Client)(nil)
