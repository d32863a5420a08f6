package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/skontar/presentation-switch/internal/config"
	"github.com/skontar/presentation-switch/internal/control"
	"github.com/skontar/presentation-switch/internal/engine"
	"github.com/skontar/presentation-switch/internal/metrics"
	"github.com/skontar/presentation-switch/internal/util"
	"github.com/skontar/presentation-switch/internal/x11"
	"github.com/skontar/presentation-switch/internal/xfce"
)

func main() {
	home, _ := os.UserHomeDir()
	defaultConfig := filepath.Join(home, ".config", "presentation-switch", "config.yaml")

	cfgPath := flag.String("config", defaultConfig, "path to YAML config")
	dryRun := flag.Bool("dry-run", false, "log transitions without touching xfconf")
	logLevel := flag.String("log-level", "info", "log level (trace|debug|info|warn|error)")
	enableMetrics := flag.Bool("metrics", true, "collect tick and transition counters")
	flag.Parse()

	logger := util.NewLogger(util.ParseLogLevel(*logLevel))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		exitErr(fmt.Errorf("load config: %w", err))
	}

	cfgFullPath, err := filepath.Abs(*cfgPath)
	if err != nil {
		exitErr(fmt.Errorf("resolve config path: %w", err))
	}
	cfgFullPath = filepath.Clean(cfgFullPath)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		exitErr(fmt.Errorf("watch config: %w", err))
	}
	defer watcher.Close()
	cfgDir := filepath.Dir(cfgFullPath)
	if err := watcher.Add(cfgDir); err != nil {
		exitErr(fmt.Errorf("watch config dir: %w", err))
	}
	if err := watcher.Add(cfgFullPath); err != nil {
		logger.Debugf("unable to watch config file directly: %v", err)
	}
	reloadRequests := make(chan string, 1)
	go watchConfig(logger, watcher, cfgFullPath, reloadRequests)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	actuator := xfce.NewClient()
	actuator.SetSuppressNotifications(cfg.SuppressNotifications)

	// Fail fast when the xfconf tooling is unreachable instead of retrying
	// forever on a desktop that cannot be switched.
	probeCtx, probeCancel := context.WithTimeout(ctx, 10*time.Second)
	current, err := actuator.PresentationMode(probeCtx)
	probeCancel()
	if err != nil {
		exitErr(fmt.Errorf("query presentation mode: %w", err))
	}
	logger.Infof("presentation mode currently %t", current)

	collector := metrics.NewCollector(*enableMetrics)
	eng := engine.New(x11.NewClient(logger), actuator, logger, collector, engine.SettingsFromConfig(cfg), *dryRun)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	reload := func(reason string) error {
		logger.Infof("%s, reloading config", reason)
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		actuator.SetSuppressNotifications(cfg.SuppressNotifications)
		eng.UpdateSettings(engine.SettingsFromConfig(cfg))
		return nil
	}

	ctrlSrv, err := control.NewServer(eng, logger, reload)
	if err != nil {
		exitErr(fmt.Errorf("start control server: %w", err))
	}

	engineDone := make(chan error, 1)
	ctrlDone := make(chan error, 1)
	go func() {
		engineDone <- eng.Run(ctx)
	}()
	go func() {
		ctrlDone <- ctrlSrv.Serve(ctx)
	}()

	if err := supervise(cancel, logger, reload, engineDone, ctrlDone, reloadRequests, sigs); err != nil {
		logger.Errorf("engine exited: %v", err)
		os.Exit(1)
	}
	logger.Infof("engine stopped")
}

// supervise dispatches reloads and signals until both workers have stopped.
// The engine is always joined before returning so its shutdown deactivate
// completes before process exit.
func supervise(cancel context.CancelFunc, logger *util.Logger, reload func(reason string) error, engineDone, ctrlDone <-chan error, reloadRequests <-chan string, sigs <-chan os.Signal) error {
	for {
		select {
		case err := <-engineDone:
			cancel()
			<-ctrlDone
			return engineExit(err)
		case err := <-ctrlDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("control server exited: %v", err)
			}
			cancel()
			return engineExit(<-engineDone)
		case reason := <-reloadRequests:
			if err := reload(reason); err != nil {
				logger.Errorf("reload failed: %v", err)
			}
		case sig := <-sigs:
			switch sig {
			case syscall.SIGHUP:
				if err := reload("received SIGHUP"); err != nil {
					logger.Errorf("reload failed: %v", err)
				}
			case os.Interrupt, syscall.SIGTERM:
				logger.Infof("received %s, shutting down", sig)
				cancel()
			}
		}
	}
}

func engineExit(err error) error {
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func watchConfig(logger *util.Logger, watcher *fsnotify.Watcher, target string, reloadRequests chan<- string) {
	const debounceWindow = 250 * time.Millisecond
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					<-timerCh
				}
				timer.Reset(debounceWindow)
			}
		case <-timerCh:
			timer = nil
			timerCh = nil
			select {
			case reloadRequests <- "config file updated":
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("config watcher error: %v", err)
		}
	}
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
