package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"pharmacy-tracker/config"
	"pharmacy-tracker/scheduler"
	"pharmacy-tracker/scraper/pharmacy"
	"pharmacy-tracker/services"
	"pharmacy-tracker/storage"
	"pharmacy-tracker/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger.Info("=== Pharmacy Tracking System starting ===")
	logger.Info("Config: concurrency %d | rate %dms | correction %v (lookahead %d)",
		cfg.MaxConcurrency, cfg.RateLimitMs, cfg.CorrectionEnabled, cfg.CorrectionLookahead)

	writer, err := storage.NewReportWriter(cfg.OutputDir, cfg.Sentinel, logger)
	if err != nil {
		logger.Error("Failed to create report writer: %v", err)
		os.Exit(1)
	}
	reader := storage.NewSnapshotReader(logger)

	var runErr error
	switch os.Args[1] {
	case "scrape":
		runErr = runScheduledScrape(cfg, logger, writer)
	case "scrape-once":
		runErr = runScrapeOnce(cfg, logger, writer)
	case "reconcile":
		label := "run"
		if len(os.Args) > 2 {
			label = os.Args[2]
		}
		pipeline := services.NewPipeline(cfg, logger, reader, writer)
		_, runErr = pipeline.Run(label)
	case "consolidate":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		pipeline := services.NewPipeline(cfg, logger, reader, writer)
		_, runErr = pipeline.ConsolidateDir(os.Args[2])
	default:
		usage()
		os.Exit(1)
	}

	if runErr != nil {
		logger.Error("%v", runErr)
		os.Exit(1)
	}

	fmt.Printf("  Done. Reports → %s\n\n", cfg.OutputDir)
}

func runScrapeOnce(cfg *config.Config, logger *utils.Logger, writer *storage.ReportWriter) error {
	name, url, err := scrapeArgs()
	if err != nil {
		return err
	}
	scraper := pharmacy.New(cfg, logger)
	records, err := scraper.Scrape(context.Background(), url)
	if err != nil {
		return fmt.Errorf("scrape %s: %w", name, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("scrape %s: no records collected", name)
	}
	_, err = scraper.SaveSnapshot(filepath.Join(cfg.CompetitorsDir, name), records, writer)
	return err
}

func runScheduledScrape(cfg *config.Config, logger *utils.Logger, writer *storage.ReportWriter) error {
	name, url, err := scrapeArgs()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scraper := pharmacy.New(cfg, logger)
	job := func(ctx context.Context) {
		records, err := scraper.Scrape(ctx, url)
		if err != nil {
			logger.Error("Scheduled scrape of %s failed: %v", name, err)
			return
		}
		if len(records) == 0 {
			logger.Warn("Scheduled scrape of %s collected no records, snapshot not written", name)
			return
		}
		if _, err := scraper.SaveSnapshot(filepath.Join(cfg.CompetitorsDir, name), records, writer); err != nil {
			logger.Error("Snapshot write for %s failed: %v", name, err)
		}
	}

	runner, err := scheduler.New(cfg.ScheduleTimes, job, logger)
	if err != nil {
		return err
	}

	logger.Info("Scheduled scraping of %q, stop with Ctrl-C", name)
	if err := runner.Run(ctx); err != context.Canceled {
		return err
	}
	return nil
}

func scrapeArgs() (name, url string, err error) {
	if len(os.Args) < 4 {
		return "", "", fmt.Errorf("usage: %s %s <competitor-name> <catalog-url>", os.Args[0], os.Args[1])
	}
	return os.Args[2], os.Args[3], nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: %s <command> [args]

commands:
  scrape <name> <url>       scrape the competitor's catalog on the daily schedule
  scrape-once <name> <url>  scrape a single snapshot now
  reconcile [label]         reconcile all competitor snapshots into ranked reports
  consolidate <dir>         merge aggregated run files into the final report
`, os.Args[0])
}
