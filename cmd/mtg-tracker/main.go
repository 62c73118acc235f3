// MTG Tracker CLI - collection price spike tracking
//
// Usage:
//   mtg-tracker ingest --input manabox_export.csv
//   mtg-tracker seed --identifiers AllIdentifiers.json.xz --allprices AllPrices.json.xz
//   mtg-tracker daily --allprices-today AllPricesToday.json.xz
//   mtg-tracker serve
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/cardledger/mtg-tracker/internal/api"
	"github.com/cardledger/mtg-tracker/internal/api/handlers"
	"github.com/cardledger/mtg-tracker/internal/config"
	"github.com/cardledger/mtg-tracker/internal/logging"
	"github.com/cardledger/mtg-tracker/internal/models"
	"github.com/cardledger/mtg-tracker/internal/services"
	"github.com/cardledger/mtg-tracker/internal/state"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "mtg-tracker",
		Usage:   "Track MTG collection prices and detect daily spikes",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				Usage:   "Path to YAML config file",
				EnvVars: []string{"MTG_TRACKER_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "Optional dotenv file loaded before config",
			},
		},
		Commands: []*cli.Command{
			ingestCommand(),
			seedCommand(),
			dailyCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig applies the dotenv file (if present), loads the YAML config
// and initializes logging. Every command goes through here.
func loadConfig(c *cli.Context) (config.Config, error) {
	if envFile := c.String("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return config.Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if err := logging.Setup(cfg.Logging); err != nil {
		return config.Config{}, fmt.Errorf("configure logging: %w", err)
	}
	return cfg, nil
}

func parseRunDate(c *cli.Context) (time.Time, error) {
	raw := c.String("date")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	parsed, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, want YYYY-MM-DD: %w", raw, err)
	}
	return parsed, nil
}

func selectorFromConfig(cfg config.Config) services.PriceSelector {
	return services.PriceSelector{
		Market:    cfg.Daily.Market,
		Provider:  cfg.Daily.Provider,
		PriceType: cfg.Daily.PriceType,
	}
}

// =============================================================================
// INGEST COMMAND
// =============================================================================

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Normalize a ManaBox CSV export into the collection file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Path to the ManaBox CSV export",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "output",
				Value: "data/collection.csv",
				Usage: "Path for the normalized collection CSV",
			},
		},
		Action: runIngest,
	}
}

func runIngest(c *cli.Context) error {
	if _, err := loadConfig(c); err != nil {
		return err
	}

	summary, err := services.IngestManaBoxCSV(c.String("input"), c.String("output"))
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d rows: %d unique keys, %d total cards (%d invalid skipped, %d finishes defaulted)\n",
		summary.TotalInputRows, summary.UniqueKeys, summary.TotalQuantity,
		summary.InvalidRowsSkipped, summary.DefaultedFinishes)
	return nil
}

// =============================================================================
// SEED COMMAND
// =============================================================================

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Bootstrap the rolling state from the bulk MTGJSON dumps",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "collection",
				Value: "data/collection.csv",
				Usage: "Path to the normalized collection CSV",
			},
			&cli.StringFlag{
				Name:     "identifiers",
				Usage:    "Path to AllIdentifiers.json (.xz/.gz accepted)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "allprices",
				Usage:    "Path to AllPrices.json (.xz/.gz accepted)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "out-dir",
				Value: "data/state",
				Usage: "Directory for seed and state artifacts",
			},
			&cli.StringFlag{
				Name:  "date",
				Usage: "Run date as YYYY-MM-DD (defaults to today UTC)",
			},
		},
		Action: runSeed,
	}
}

func runSeed(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	today, err := parseRunDate(c)
	if err != nil {
		return err
	}

	result, err := services.RunSeed(services.SeedParams{
		CollectionPath:  c.String("collection"),
		IdentifiersPath: c.String("identifiers"),
		AllPricesPath:   c.String("allprices"),
		OutputDir:       c.String("out-dir"),
		Selector:        selectorFromConfig(cfg),
		StateDays:       cfg.Daily.StateDays,
		Today:           today,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Seed written: %s (%d rows), state: %s (%d rows)\n",
		result.SeedPath, result.Meta.SeedRows, result.StatePath, result.Meta.StateRows)
	return nil
}

// =============================================================================
// DAILY COMMAND
// =============================================================================

func dailyCommand() *cli.Command {
	return &cli.Command{
		Name:  "daily",
		Usage: "Run one daily append-detect-report cycle",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "collection",
				Value: "data/collection.csv",
				Usage: "Path to the normalized collection CSV",
			},
			&cli.StringFlag{
				Name:     "allprices-today",
				Usage:    "Path to AllPricesToday.json (.xz/.gz accepted)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "reports-dir",
				Value: "data/reports",
				Usage: "Directory for spike reports",
			},
			&cli.StringFlag{
				Name:  "seed-state",
				Value: "data/state/state.csv",
				Usage: "Seed snapshot used when the backend has no state yet",
			},
			&cli.StringFlag{
				Name:  "date",
				Usage: "Run date as YYYY-MM-DD (defaults to today UTC)",
			},
		},
		Action: runDaily,
	}
}

func runDaily(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	today, err := parseRunDate(c)
	if err != nil {
		return err
	}

	backend, err := state.NewBackend(cfg.StateBackend)
	if err != nil {
		return err
	}

	result, err := services.NewDailyService(backend).RunDaily(c.Context, dailyParams(cfg, c, today))
	if err != nil {
		return err
	}

	fmt.Printf("Daily %s: %d spikes across %d cards, %d state rows\n",
		result.TodayDate, len(result.Detail), len(result.Summary), result.StateRows)
	for _, path := range result.ReportPaths {
		fmt.Printf("  %s\n", path)
	}
	return nil
}

func dailyParams(cfg config.Config, c *cli.Context, today time.Time) services.DailyParams {
	return services.DailyParams{
		CollectionPath:     c.String("collection"),
		AllPricesTodayPath: c.String("allprices-today"),
		ReportsDir:         c.String("reports-dir"),
		SeedStatePath:      c.String("seed-state"),
		Selector:           selectorFromConfig(cfg),
		StateDays:          cfg.Daily.StateDays,
		Windows:            cfg.Daily.Windows,
		PriceFloor:         cfg.Daily.PriceFloor,
		PctThreshold:       cfg.Daily.PctThreshold,
		AbsMin:             cfg.Daily.AbsMin,
		PctOverride:        cfg.Daily.PctOverride,
		Today:              today,
	}
}

// =============================================================================
// SERVE COMMAND
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the read-only dashboard API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Usage:   "Override the configured API port",
				EnvVars: []string{"MTG_TRACKER_PORT"},
			},
			&cli.StringFlag{
				Name:  "collection",
				Value: "data/collection.csv",
				Usage: "Path to the normalized collection CSV",
			},
			&cli.StringFlag{
				Name:  "reports-dir",
				Value: "data/reports",
				Usage: "Directory daily reports are written to",
			},
			&cli.StringFlag{
				Name:  "allprices-today",
				Usage: "Dump path for scheduled daily runs (enables the cron scheduler)",
			},
			&cli.StringFlag{
				Name:  "seed-state",
				Value: "data/state/state.csv",
				Usage: "Seed snapshot used when the backend has no state yet",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if port := c.Int("port"); port > 0 {
		cfg.Server.Port = port
	}

	backend, err := state.NewBackend(cfg.StateBackend)
	if err != nil {
		return err
	}

	provider, err := handlers.NewDataProvider(backend, c.String("collection"), c.String("reports-dir"))
	if err != nil {
		return err
	}

	scheduler, err := startScheduler(cfg, c, backend, provider)
	if err != nil {
		return err
	}

	router := api.SetupRouter(provider, cfg.Server)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logrus.Infof("Starting server on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Warnf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
	return nil
}

// startScheduler wires the cron daily run when both a schedule and a dump
// path are configured. Returns nil when scheduling is disabled.
func startScheduler(cfg config.Config, c *cli.Context, backend state.Backend, provider *handlers.DataProvider) (*cron.Cron, error) {
	spec := cfg.Server.DailyCron
	dumpPath := c.String("allprices-today")
	if spec == "" || dumpPath == "" {
		if spec != "" {
			logrus.Warn("daily_cron configured but --allprices-today not set, scheduler disabled")
		}
		return nil, nil
	}

	daily := services.NewDailyService(backend)
	scheduler := cron.New()
	_, err := scheduler.AddFunc(spec, func() {
		params := dailyParams(cfg, c, time.Now().UTC())
		if _, err := daily.RunDaily(context.Background(), params); err != nil {
			logrus.Errorf("Scheduled daily run failed: %v", err)
			return
		}
		provider.Invalidate()
	})
	if err != nil {
		return nil, fmt.Errorf("invalid daily_cron %q: %w", spec, err)
	}

	scheduler.Start()
	logrus.Infof("Daily run scheduled: %s", spec)
	return scheduler, nil
}
