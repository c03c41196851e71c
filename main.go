package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"racecalc/internal/analysis"
	"racecalc/internal/config"
	"racecalc/internal/logging"
	"racecalc/internal/service"
	"racecalc/internal/store"
	"racecalc/internal/timefmt"
)

const usage = `racecalc - training zones and race predictions

Usage:
  racecalc [command] [flags]

Commands:
  tui         interactive terminal UI (default)
  zones       print training zones
  bike        predict a bike course
  tri         predict a triathlon
  test        record a field test
  import-fit  record FTP tests from a FIT ride file
  auth        connect to Strava
  sync        pull FTP, weight and a recent run from Strava
  history     list saved predictions
  serve       run the HTTP API

Run 'racecalc <command> --help' for command flags.
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "racecalc: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for rejected input, 1 for anything else
func exitCode(err error) int {
	if errors.Is(err, analysis.ErrInvalidInput) || errors.Is(err, timefmt.ErrInvalidFormat) {
		return 2
	}
	return 1
}

type command func(ctx context.Context, args []string) error

var commands = map[string]command{
	"tui":        runTUI,
	"zones":      runZones,
	"bike":       runBike,
	"tri":        runTriathlon,
	"test":       runFieldTest,
	"import-fit": runImportFIT,
	"auth":       runAuth,
	"sync":       runSync,
	"history":    runHistory,
	"serve":      runServe,
}

func run(args []string) error {
	name := "tui"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name, args = args[0], args[1:]
	}
	if name == "help" {
		fmt.Print(usage)
		return nil
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", name)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cmd(ctx, args)
}

// newFlags returns a flag set with the options every command shares
func newFlags(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "config file (default ~/.racecalc/config.json)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: racecalc %s [flags]\n\n%s", name, fs.FlagUsages())
	}
	return fs, configPath
}

// env is what a command needs once flags are parsed
type env struct {
	cfg     *config.Config
	logger  *logging.Logger
	db      *store.Store
	planner *service.PlannerService
}

func setup(configPath string) (*env, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		configDir, _ := config.GetConfigDir()
		return nil, fmt.Errorf("config validation failed: %w (edit %s/config.json)", err, configDir)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("opening log: %w", err)
	}

	db, err := store.Open()
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &env{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		planner: service.NewPlannerService(db, cfg, logger.Logger),
	}, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.LoadOrDefault()
}

func (e *env) Close() {
	e.db.Close()
	e.logger.Close()
}
