package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/skontar/presentation-switch/internal/config"
	"github.com/skontar/presentation-switch/internal/rules"
	"github.com/skontar/presentation-switch/internal/state"
	"github.com/skontar/presentation-switch/internal/util"
	"github.com/skontar/presentation-switch/internal/x11"
)

func main() {
	home, _ := os.UserHomeDir()
	defaultConfig := filepath.Join(home, ".config", "presentation-switch", "config.yaml")

	cfgPath := flag.String("config", defaultConfig, "path to YAML config")
	logLevel := flag.String("log-level", "info", "log level (trace|debug|info|warn|error)")
	flag.Parse()

	logger := util.NewLogger(util.ParseLogLevel(*logLevel))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		exitErr(fmt.Errorf("load config: %w", err))
	}

	conditions := rules.BuildConditions(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snapshot, err := state.NewSnapshot(ctx, x11.NewClient(logger))
	if err != nil {
		exitErr(fmt.Errorf("sample desktop: %w", err))
	}

	fmt.Printf("Loaded config from %s\n", *cfgPath)
	fmt.Println("\n=== Configuration ===")
	if err := marshalYAML(cfg); err != nil {
		logger.Warnf("failed to print config: %v", err)
	}

	fmt.Println("\n=== Desktop Snapshot ===")
	if err := marshalJSON(snapshot); err != nil {
		logger.Warnf("failed to print snapshot: %v", err)
	}

	verdict := rules.Evaluate(snapshot.Windows, conditions)

	fmt.Println("\n=== Evaluation ===")
	if !verdict.Matched {
		fmt.Println("No condition matched the current snapshot.")
		return
	}
	fmt.Printf("Matched: %s\n", strings.Join(verdict.Reasons, ", "))
	if verdict.Trigger != nil {
		fmt.Printf("Trigger window: %s %q\n", verdict.Trigger.ID, verdict.Trigger.Title)
	}
	for i, hits := range verdict.ConditionHits {
		fmt.Printf("  condition %d (%s): %d window(s)\n", i+1, conditions[i].String(), hits)
	}
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func marshalYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

func marshalJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
