package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsarchive/harvester/internal/logging"
	"github.com/newsarchive/harvester/internal/pubs"
	"github.com/newsarchive/harvester/internal/store"
)

// newPublicationsCmd creates the 'publications' subcommand, which builds
// the publication catalogue the rest of the pipeline consumes.
func newPublicationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publications",
		Short: "Harvest the archive's publication catalogue",
		Long: `Scrapes the archive's master publication table, then visits each
publication's detail page to collect its metadata and cover image.
Publications already present in the output CSV are skipped, so the
command can be interrupted and rerun.`,

		RunE: runPublicationsCommand,
	}
}

func runPublicationsCommand(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	page, err := newPage(settings, logging.L.Named("browser"))
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			logging.L.Warn("Failed to close browser", zap.Error(cerr))
		}
	}()

	if err := ensureParent(settings.Data.PublicationsCSV); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	pubStore := store.NewPublicationStore(settings.Data.PublicationsCSV, logging.L.Named("store"))
	defer pubStore.Close() //nolint:errcheck // flushed per row

	scraper := pubs.NewScraper(pubs.Config{
		BaseURL:   settings.Archive.BaseURL,
		StartURL:  settings.Archive.StartURL,
		ImagesDir: settings.Data.ImagesDir,
		UserAgent: settings.Archive.UserAgent,
		DelayMin:  settings.Crawler.DetailDelayMin,
		DelayMax:  settings.Crawler.DetailDelayMax,
	}, page, pubStore, nil, logging.L.Named("publications"))

	if err := scraper.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("harvest publications: %w", err)
	}
	logging.L.Info("Publications command finished.")
	return nil
}
