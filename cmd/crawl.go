package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsarchive/harvester/internal/api"
	"github.com/newsarchive/harvester/internal/crawl"
	"github.com/newsarchive/harvester/internal/download"
	"github.com/newsarchive/harvester/internal/logging"
	"github.com/newsarchive/harvester/internal/metrics"
	"github.com/newsarchive/harvester/internal/progress"
	"github.com/newsarchive/harvester/internal/store"
)

// newCrawlCmd creates the 'crawl' subcommand, the long-running issue
// harvest over a (usually filtered) publication list.
func newCrawlCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Harvest issues and download their PDFs",
		Long: `Walks each publication's paginated issue listing, records every
issue to the issues CSV, and downloads the scanned PDFs. Issues already
recorded are skipped and the publication the previous run stopped in is
reprocessed, so an interrupted crawl resumes cleanly.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawlCommand(cmd, input)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "publications CSV to crawl (default is the filtered list when present)")
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, input string) error {
	settings, err := loadSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if input == "" {
		input = settings.Data.FilteredCSV
		if _, statErr := os.Stat(input); statErr != nil {
			input = settings.Data.PublicationsCSV
		}
	}
	pubs, err := store.LoadPublications(input)
	if err != nil {
		return fmt.Errorf("load publications from %s: %w", input, err)
	}
	logging.L.Info("Loaded publications", zap.String("input", input), zap.Int("count", len(pubs)))

	page, err := newPage(settings, logging.L.Named("browser"))
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			logging.L.Warn("Failed to close browser", zap.Error(cerr))
		}
	}()

	for _, path := range []string{settings.Data.IssuesCSV, settings.Data.FailedIssuesCSV} {
		if err := ensureParent(path); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	issues := store.NewIssueStore(settings.Data.IssuesCSV, logging.L.Named("store"))
	defer issues.Close() //nolint:errcheck // flushed per row
	failures := store.NewIssueStore(settings.Data.FailedIssuesCSV, logging.L.Named("store"))
	defer failures.Close() //nolint:errcheck // flushed per row

	fetcher := download.New(download.Config{
		BaseURL:       settings.Archive.BaseURL,
		UserAgent:     settings.Archive.UserAgent,
		Timeout:       settings.Download.Timeout,
		RatePerSecond: settings.Download.RatePerSecond,
	}, page, logging.L.Named("download"))

	metrics.Init()
	tracker := &progress.Tracker{}
	if settings.Server.Enabled {
		server := api.NewServer(settings.Server.Addr, tracker, logging.L.Named("api"))
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if serr := server.Shutdown(shutdownCtx); serr != nil {
				logging.L.Warn("Status server shutdown failed", zap.Error(serr))
			}
		}()
	}

	orch := crawl.NewOrchestrator(crawl.Config{
		BaseURL:        settings.Archive.BaseURL,
		IssuesDir:      settings.Data.IssuesDir,
		Workers:        settings.Crawler.Workers,
		PageTimeout:    settings.Crawler.PageTimeout,
		PageDelayMin:   settings.Crawler.PageDelayMin,
		PageDelayMax:   settings.Crawler.PageDelayMax,
		EntityDelayMin: settings.Crawler.EntityDelayMin,
		EntityDelayMax: settings.Crawler.EntityDelayMax,
	}, page, fetcher, issues, failures, tracker, logging.L.Named("crawl"))

	if err := orch.Run(cmd.Context(), pubs); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl: %w", err)
	}

	snap := tracker.Snapshot()
	logging.L.Info("Crawl command finished.",
		zap.Int64("discovered", snap.Discovered),
		zap.Int64("downloaded", snap.Downloaded),
		zap.Int64("skipped", snap.Skipped),
		zap.Int64("failed", snap.Failed))
	return nil
}
