package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobradar/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	sitesFile    = flag.String("sites", "", "YAML file with the site list to scan")
	schedule     = flag.String("schedule", "", "Cron expression for repeated scans (default: run once and exit)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("JobRadar version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Initialize logger
	// 3. Print banner

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("jobradar.toml"); err == nil {
			configFiles = append(configFiles, "jobradar.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	sites, err := loadSites(*sitesFile, flag.Args())
	if err != nil {
		logger.Fatal().Err(err).Str("file", *sitesFile).Msg("Failed to load site list")
		os.Exit(1)
	}
	if len(sites) == 0 {
		fmt.Fprintln(os.Stderr, "usage: jobradar [-config jobradar.toml] [-sites sites.yaml] [url ...]")
		os.Exit(2)
	}

	logger.Info().
		Strs("config_files", configFiles).
		Int("sites", len(sites)).
		Int("workers", config.Scan.Workers).
		Str("provider", string(config.LLM.DefaultProvider)).
		Msg("Application configuration loaded")

	app, err := newApp(context.Background(), config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *schedule == "" {
		batch := app.scanAll(ctx, sites)
		reportBatch(app, batch)
		if batch.failed > 0 {
			os.Exit(1)
		}
		return
	}

	// Scheduled mode: rescan on the given cron expression, sweep the
	// LLM cache on the configured sweep schedule.
	c := cron.New()
	if _, err := c.AddFunc(*schedule, func() {
		reportBatch(app, app.scanAll(ctx, sites))
	}); err != nil {
		logger.Fatal().Err(err).Str("schedule", *schedule).Msg("Invalid scan schedule")
		os.Exit(1)
	}
	if app.cache != nil && config.Scan.SweepSchedule != "" {
		if _, err := c.AddFunc(config.Scan.SweepSchedule, func() {
			if _, err := app.cache.Sweep(ctx); err != nil {
				logger.Warn().Err(err).Msg("LLM cache sweep failed")
			}
		}); err != nil {
			logger.Warn().Err(err).Str("schedule", config.Scan.SweepSchedule).Msg("Invalid sweep schedule, sweeping disabled")
		}
	}

	// run one batch immediately, then hand over to the scheduler
	reportBatch(app, app.scanAll(ctx, sites))
	c.Start()
	logger.Info().Str("schedule", *schedule).Msg("Scheduler running - Press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info().Msg("Interrupt signal received")

	stopCtx := c.Stop()
	<-stopCtx.Done()
	logger.Info().Msg("Scheduler stopped")
}
