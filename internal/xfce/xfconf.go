package xfce

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync/atomic"
)

// ErrUnknownModeState is returned when the presentation mode query produces
// output that is neither true nor false.
var ErrUnknownModeState = errors.New("unknown presentation mode state")

const (
	powerManagerChannel  = "xfce4-power-manager"
	presentationProperty = "/xfce4-power-manager/presentation-mode"
	notifydChannel       = "xfce4-notifyd"
	dndProperty          = "/do-not-disturb"
)

type runFunc func(ctx context.Context, binary string, args ...string) ([]byte, error)

// Client drives the XFCE presentation mode and its companion toggles through
// xfconf-query and xautolock.
type Client struct {
	XfconfBinary    string
	XautolockBinary string

	// suppressNotifications additionally toggles the notification daemon's
	// do-not-disturb property on Enable/Disable. Atomic so a config reload
	// can flip it while the polling loop is active.
	suppressNotifications atomic.Bool

	run runFunc
}

// SetSuppressNotifications controls whether Enable/Disable also toggle
// do-not-disturb.
func (c *Client) SetSuppressNotifications(enabled bool) {
	c.suppressNotifications.Store(enabled)
}

// NewClient returns a client using the binaries on PATH.
func NewClient() *Client {
	return &Client{
		XfconfBinary:    "xfconf-query",
		XautolockBinary: "xautolock",
		run:             execRun,
	}
}

func execRun(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %s: %v: %s", binary, strings.Join(args, " "), err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// PresentationMode reads the current presentation mode flag.
func (c *Client) PresentationMode(ctx context.Context) (bool, error) {
	out, err := c.run(ctx, c.XfconfBinary, "-c", powerManagerChannel, "-p", presentationProperty)
	if err != nil {
		return false, err
	}
	switch {
	case bytes.Contains(out, []byte("false")):
		return false, nil
	case bytes.Contains(out, []byte("true")):
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownModeState, strings.TrimSpace(string(out)))
	}
}

// SetPresentationMode writes the presentation mode flag. Setting the already
// current value is a no-op on the xfconf side.
func (c *Client) SetPresentationMode(ctx context.Context, on bool) error {
	_, err := c.run(ctx, c.XfconfBinary, "-c", powerManagerChannel, "-p", presentationProperty, "-s", boolArg(on))
	return err
}

// SetAutoLockEnabled enables or disables xautolock.
func (c *Client) SetAutoLockEnabled(ctx context.Context, enabled bool) error {
	arg := "-disable"
	if enabled {
		arg = "-enable"
	}
	_, err := c.run(ctx, c.XautolockBinary, arg)
	return err
}

// SetNotificationsSuppressed toggles the notification daemon's do-not-disturb
// property.
func (c *Client) SetNotificationsSuppressed(ctx context.Context, suppressed bool) error {
	_, err := c.run(ctx, c.XfconfBinary, "-c", notifydChannel, "-p", dndProperty, "-s", boolArg(suppressed))
	return err
}

// Enable turns on everything a real presentation needs: autolock off,
// notifications optionally silenced, presentation mode on.
func (c *Client) Enable(ctx context.Context) error {
	if err := c.SetAutoLockEnabled(ctx, false); err != nil {
		return err
	}
	if c.suppressNotifications.Load() {
		if err := c.SetNotificationsSuppressed(ctx, true); err != nil {
			return err
		}
	}
	return c.SetPresentationMode(ctx, true)
}

// Disable reverses Enable.
func (c *Client) Disable(ctx context.Context) error {
	if err := c.SetAutoLockEnabled(ctx, true); err != nil {
		return err
	}
	if c.suppressNotifications.Load() {
		if err := c.SetNotificationsSuppressed(ctx, false); err != nil {
			return err
		}
	}
	return c.SetPresentationMode(ctx, false)
}

func boolArg(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
