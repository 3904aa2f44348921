// Package main is the entry point for the eventbus demo.
//
// It wires a dispatcher with Go listener objects and Lua script listeners,
// posts a fixed set of chat events and prints the outcome and the metrics.
package main

import (
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dshills/eventbus/event"
	"github.com/dshills/eventbus/event/luabridge"
	"github.com/dshills/eventbus/event/metrics"
	"github.com/dshills/eventbus/internal/config"
	"github.com/dshills/eventbus/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

//go:embed scripts/demo.lua
var demoScript string

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options are the parsed command line flags.
type options struct {
	configPath  string
	scripts     []string
	showVersion bool
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var (
		opts    options
		scripts stringList
	)
	fs := flag.NewFlagSet("eventbus", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file (.toml, .yaml or .yml)")
	fs.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	fs.Var(&scripts, "script", "Lua script to load (repeatable)")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	fs.BoolVar(&opts.showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "eventbus - in-process event dispatcher demo\n\n")
		fmt.Fprintf(stderr, "Usage: eventbus [options]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nEnvironment:\n")
		fmt.Fprintf(stderr, "  %s\n", strings.Join(config.EnvVars(), ", "))
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.scripts = scripts
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "eventbus %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(opts.scripts) > 0 {
		cfg.Scripts.Paths = opts.scripts
	}

	logger, closeLog, err := logging.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to set up logging: %v\n", err)
		return 1
	}
	defer closeLog()

	if err := runDemo(cfg, logger, stdout); err != nil {
		logger.Error().Err(err).Msg("demo failed")
		return 1
	}
	return 0
}

// runDemo wires the dispatcher from cfg and runs the scenario.
func runDemo(cfg *config.Config, logger zerolog.Logger, stdout io.Writer) error {
	opts := []event.Option{
		event.WithLogger(logger),
		event.WithStackCapture(cfg.Dispatch.CaptureStack),
	}

	reg := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		opts = append(opts, event.WithObserver(metrics.NewCollector(cfg.Metrics.Namespace, reg)))
	}
	d := event.NewDispatcher(opts...)

	host := luabridge.NewHost(d,
		luabridge.WithLogger(logger),
		luabridge.WithTimeout(time.Duration(cfg.Scripts.Timeout)),
		luabridge.WithDefaultPriority(cfg.ScriptPriority()),
		luabridge.WithOutput(stdout),
	)
	defer host.Close()

	if err := exposeEvents(host); err != nil {
		return err
	}

	if len(cfg.Scripts.Paths) == 0 {
		if err := host.DoString(demoScript); err != nil {
			return fmt.Errorf("demo script: %w", err)
		}
	}
	for _, path := range cfg.Scripts.Paths {
		if err := host.DoFile(path); err != nil {
			return fmt.Errorf("script %s: %w", path, err)
		}
		logger.Info().Str("script", path).Msg("script loaded")
	}

	if _, err := registerDemoListeners(d, stdout); err != nil {
		return err
	}

	runScenario(d, stdout)

	stats := d.Stats()
	fmt.Fprintf(stdout, "dispatches=%d invocations=%d failures=%d panics=%d\n",
		stats.Dispatches, stats.Invocations, stats.Failures, stats.Panics)

	if cfg.Metrics.Enabled {
		return printMetrics(reg, stdout)
	}
	return nil
}
