package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsarchive/harvester/internal/daterange"
	"github.com/newsarchive/harvester/internal/logging"
	"github.com/newsarchive/harvester/internal/store"
)

// newFilterCmd creates the 'filter' subcommand, which narrows the
// publication catalogue before a crawl.
func newFilterCmd() *cobra.Command {
	var (
		input       string
		output      string
		collections []string
		languages   []string
		fromRaw     string
		toRaw       string
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Filter the publication catalogue",
		Long: `Reads the publications CSV and writes the subset matching the
given collections, languages, and date window. A publication matches the
date window when its own date range overlaps it; publications without a
date are dropped whenever a window is given.`,

		RunE: func(_ *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			if input == "" {
				input = settings.Data.PublicationsCSV
			}
			if output == "" {
				output = settings.Data.FilteredCSV
			}

			opts := store.FilterOptions{
				Collections: collections,
				Languages:   languages,
			}
			if opts.From, err = parseBoundary(fromRaw); err != nil {
				return fmt.Errorf("parse --from: %w", err)
			}
			if opts.To, err = parseBoundary(toRaw); err != nil {
				return fmt.Errorf("parse --to: %w", err)
			}

			pubs, err := store.LoadPublications(input)
			if err != nil {
				return fmt.Errorf("load publications from %s: %w", input, err)
			}
			kept := store.Filter(pubs, opts)

			if err := ensureParent(output); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			if err := store.WritePublications(output, kept); err != nil {
				return fmt.Errorf("write filtered list: %w", err)
			}

			logging.L.Info("Filter command finished.",
				zap.String("input", input),
				zap.String("output", output),
				zap.Int("in", len(pubs)),
				zap.Int("kept", len(kept)))
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "publications CSV to filter (default from config)")
	cmd.Flags().StringVar(&output, "output", "", "filtered CSV to write (default from config)")
	cmd.Flags().StringSliceVar(&collections, "collection", nil, "keep only these collections (repeatable)")
	cmd.Flags().StringSliceVar(&languages, "language", nil, "keep only these languages (repeatable)")
	cmd.Flags().StringVar(&fromRaw, "from", "", "window start, dd/mm/yyyy")
	cmd.Flags().StringVar(&toRaw, "to", "", "window end, dd/mm/yyyy")
	return cmd
}

// parseBoundary parses a window boundary flag in the archive's date
// layout. An empty flag leaves the boundary open.
func parseBoundary(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(daterange.Layout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
