package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newsarchive/harvester/internal/stats"
)

// newStatsCmd creates the 'stats' subcommand, a quick consistency check
// between the recorded catalogue and what is actually on disk.
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Report declared page totals and on-disk PDF counts",
		Long: `Sums the page counts declared in the issues CSV and counts the PDF
files present under the issues and pages directories. Comparing the two
shows how much of the recorded archive has actually been downloaded and
split.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			declared, err := stats.SumDeclaredPages(settings.Data.IssuesCSV)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("sum declared pages: %w", err)
			}
			issuePDFs, err := stats.CountPDFs(settings.Data.IssuesDir)
			if err != nil {
				return fmt.Errorf("count issue PDFs: %w", err)
			}
			pagePDFs, err := stats.CountPDFs(settings.Data.PagesDir)
			if err != nil {
				return fmt.Errorf("count page PDFs: %w", err)
			}

			cmd.Printf("Declared pages in %s: %d\n", settings.Data.IssuesCSV, declared)
			cmd.Printf("Issue PDFs under %s: %d\n", settings.Data.IssuesDir, issuePDFs)
			cmd.Printf("Page PDFs under %s: %d\n", settings.Data.PagesDir, pagePDFs)
			return nil
		},
	}
}
