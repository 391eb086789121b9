package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsarchive/harvester/internal/logging"
	"github.com/newsarchive/harvester/internal/metrics"
	"github.com/newsarchive/harvester/internal/paginate"
)

// newPaginateCmd creates the 'paginate' subcommand, which splits the
// downloaded issue PDFs into per-page files.
func newPaginateCmd() *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "paginate",
		Short: "Split downloaded issue PDFs into per-page PDFs",
		Long: `Walks the downloaded issues tree and writes one PDF per page into
a mirrored output tree. Issues whose pages already exist are skipped, so
the command can be rerun to fill in whatever a previous run left
unfinished. Unreadable PDFs are listed in the failure log.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			metrics.Init()
			proc := paginate.New(paginate.Config{
				SourceDir:  settings.Data.IssuesDir,
				DestDir:    settings.Data.PagesDir,
				Collection: collection,
				Workers:    settings.Paginate.Workers,
				FailureLog: settings.Paginate.FailureLog,
			}, paginate.NewPDFCPUSplitter(), logging.L.Named("paginate"))

			summary, err := proc.Run(cmd.Context())
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("paginate issues: %w", err)
			}
			logging.L.Info("Paginate command finished.",
				zap.Int("processed", summary.Processed),
				zap.Int("skipped", summary.Skipped),
				zap.Int("failed", summary.Failed))
			return nil
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "only process issues under this collection")
	return cmd
}
