package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsarchive/harvester/internal/dataset"
	"github.com/newsarchive/harvester/internal/logging"
)

// newDatasetCmd creates the 'dataset' subcommand, which packages the
// publication catalogue as a Parquet file and optionally publishes it.
func newDatasetCmd() *cobra.Command {
	var upload bool

	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Build the publications Parquet dataset",
		Long: `Combines the publications CSV with the harvested cover images into
a single Parquet file, embedding the images as bytes. With --upload the
file is also pushed to the configured Cloud Storage bucket.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			summary, err := dataset.Build(
				settings.Data.PublicationsCSV,
				settings.Data.ImagesDir,
				settings.Data.DatasetPath,
				logging.L.Named("dataset"),
			)
			if err != nil {
				return fmt.Errorf("build dataset: %w", err)
			}

			if upload {
				if settings.Dataset.Bucket == "" {
					return fmt.Errorf("dataset.bucket must be set to upload")
				}
				uploader, err := dataset.Connect(cmd.Context(), settings.Dataset.Bucket)
				if err != nil {
					return fmt.Errorf("connect to bucket: %w", err)
				}
				defer uploader.Close() //nolint:errcheck // best-effort cleanup

				uri, err := uploader.Upload(cmd.Context(), settings.Data.DatasetPath, settings.Dataset.Object)
				if err != nil {
					return fmt.Errorf("upload dataset: %w", err)
				}
				logging.L.Info("Dataset uploaded", zap.String("uri", uri))

				// A dataset card next to the parquet file rides along when
				// present.
				readme := filepath.Join(filepath.Dir(settings.Data.DatasetPath), "README.md")
				if _, statErr := os.Stat(readme); statErr == nil {
					if uri, err := uploader.Upload(cmd.Context(), readme, "README.md"); err != nil {
						logging.L.Warn("README upload failed", zap.Error(err))
					} else {
						logging.L.Info("README uploaded", zap.String("uri", uri))
					}
				}
			}

			logging.L.Info("Dataset command finished.",
				zap.Int("rows", summary.Rows),
				zap.Int("with_images", summary.WithImages))
			return nil
		},
	}

	cmd.Flags().BoolVar(&upload, "upload", false, "upload the built file to the configured bucket")
	return cmd
}
