package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/skontar/presentation-switch/internal/config"
	"github.com/skontar/presentation-switch/internal/control"
	"github.com/skontar/presentation-switch/internal/control/client"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	fs := flag.NewFlagSet("pswctl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	socket := fs.String("socket", "", "path to presentation-switch control socket")
	timeout := fs.Duration("timeout", 3*time.Second, "control request timeout")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] <command> [args]\n", fs.Name())
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Commands:")
		fmt.Fprintln(fs.Output(), "  status\t\t\tshow daemon state and counters")
		fmt.Fprintln(fs.Output(), "  mode get|set on|off|auto\tmanage presentation mode")
		fmt.Fprintln(fs.Output(), "  history\t\t\tshow recent check results")
		fmt.Fprintln(fs.Output(), "  windows\t\t\tshow the last desktop snapshot")
		fmt.Fprintln(fs.Output(), "  reload\t\t\ttrigger a live config reload")
		fmt.Fprintln(fs.Output(), "  check --config <path>\tvalidate a configuration file")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		return fmt.Errorf("missing subcommand")
	}

	if args[0] == "check" {
		return runCheck(args[1:], os.Stdout, os.Stderr)
	}

	cli, err := client.New(*socket)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	switch args[0] {
	case "status":
		return runStatus(ctx, cli)
	case "mode":
		return runMode(ctx, cli, args[1:])
	case "history":
		return runHistory(ctx, cli)
	case "windows":
		return runWindows(ctx, cli)
	case "reload":
		return runReload(ctx, cli)
	default:
		fs.Usage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func runCheck(args []string, stdout io.Writer, stderr io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *configPath == "" {
		fs.Usage()
		return fmt.Errorf("check requires --config <path>")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Configuration OK (%d condition(s), check every %s)\n",
		len(cfg.Conditions), cfg.TickPeriod())
	return nil
}

func runStatus(ctx context.Context, cli *client.Client) error {
	status, err := cli.Status(ctx)
	if err != nil {
		return err
	}
	printStatus(status)
	return nil
}

func printStatus(status client.Status) {
	fmt.Printf("Presentation mode: %s\n", onOff(status.Active))
	if status.Forced {
		fmt.Println("Control: forced (automatic switching held)")
	} else {
		fmt.Println("Control: automatic")
	}
	fmt.Printf("Counter: %d/%d\n", status.Counter, status.Checks)
	fmt.Printf("Check period: %s\n", status.TickPeriod)
	if len(status.Conditions) > 0 {
		fmt.Printf("Conditions: %s\n", strings.Join(status.Conditions, "; "))
	}
	if last := status.LastTick; last != nil {
		fmt.Printf("Last check: %s %s\n", last.Timestamp.Format(time.RFC3339), describeTick(*last))
	}
	totals := status.Metrics.Totals
	fmt.Printf("Checks run: %d (skipped %d, sample errors %d)\n",
		totals.Ticks, totals.SkippedTicks, totals.SampleErrors)
	fmt.Printf("Transitions: %d activations, %d deactivations\n",
		totals.Activations, totals.Deactivations)
}

func runMode(ctx context.Context, cli *client.Client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("mode requires a subcommand (get|set)")
	}
	switch args[0] {
	case "get":
		status, err := cli.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Presentation mode: %s\n", onOff(status.Active))
		if status.Forced {
			fmt.Println("Control: forced")
		} else {
			fmt.Println("Control: automatic")
		}
		return nil
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("mode set requires a state (%s|%s|%s)",
				control.ModeOn, control.ModeOff, control.ModeAuto)
		}
		status, err := cli.SetMode(ctx, args[1])
		if err != nil {
			return err
		}
		if args[1] == control.ModeAuto {
			fmt.Printf("Automatic switching resumed (mode currently %s)\n", onOff(status.Active))
		} else {
			fmt.Printf("Presentation mode forced %s\n", args[1])
		}
		return nil
	default:
		return fmt.Errorf("unknown mode subcommand %q", args[0])
	}
}

func runHistory(ctx context.Context, cli *client.Client) error {
	result, err := cli.History(ctx)
	if err != nil {
		return err
	}
	if len(result.Ticks) == 0 {
		fmt.Println("No checks recorded yet")
		return nil
	}
	for _, tick := range result.Ticks {
		fmt.Printf("[%s] %s\n", tick.Timestamp.Format(time.RFC3339), describeTick(tick))
	}
	return nil
}

func describeTick(tick client.TickRecord) string {
	if tick.Error != "" {
		return fmt.Sprintf("sample error: %s", tick.Error)
	}
	var sb strings.Builder
	if tick.Matched {
		sb.WriteString("matched")
		if len(tick.Reasons) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(tick.Reasons, ", "))
		}
		if tick.TriggerTitle != "" {
			fmt.Fprintf(&sb, " by %q", tick.TriggerTitle)
		}
	} else {
		sb.WriteString("no match")
	}
	fmt.Fprintf(&sb, " counter=%d", tick.Counter)
	if tick.Transition != "" {
		fmt.Fprintf(&sb, " transition=%s", tick.Transition)
	}
	if tick.Held {
		sb.WriteString(" held")
	}
	return sb.String()
}

func runWindows(ctx context.Context, cli *client.Client) error {
	result, err := cli.Windows(ctx)
	if err != nil {
		return err
	}
	if len(result.Windows) == 0 {
		fmt.Println("No snapshot available yet")
		return nil
	}
	for _, win := range result.Windows {
		fmt.Printf("%s pid=%s", win.ID, win.PID)
		if len(win.Classes) > 0 {
			fmt.Printf(" class=%s", strings.Join(win.Classes, ","))
		}
		if win.Fullscreen {
			fmt.Print(" fullscreen")
		}
		if win.CPU != nil {
			fmt.Printf(" cpu=%.1f", *win.CPU)
		}
		if win.Title != "" {
			fmt.Printf(" %q", win.Title)
		}
		fmt.Println()
	}
	return nil
}

func runReload(ctx context.Context, cli *client.Client) error {
	if err := cli.Reload(ctx); err != nil {
		return err
	}
	fmt.Println("Reload requested")
	return nil
}

func onOff(active bool) string {
	if active {
		return "on"
	}
	return "off"
}
