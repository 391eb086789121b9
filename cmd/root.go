// Package cmd defines and implements the CLI commands for the harvester
// executable.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	appconfig "github.com/newsarchive/harvester/internal/config"
	"github.com/newsarchive/harvester/internal/logging"
	"github.com/newsarchive/harvester/internal/pageclient"
	"github.com/newsarchive/harvester/pkg/config"
)

var (
	cfgFile string
	devMode bool
)

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Crawl and package a digitized newspaper archive.",
		Long: `harvester walks a digitized newspaper archive publication by
publication, records every issue it finds, downloads the scanned PDFs,
splits them into per-page files, and packages the catalogue as a
Parquet dataset. Every stage is resumable: interrupted runs pick up
where the last one stopped.`,

		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return logging.Init(devMode)
		},
	}

	// Initialize Viper configuration.
	cobra.OnInitialize(config.InitConfig)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	cmd.PersistentFlags().BoolVar(&devMode, "dev", false, "human-readable development logging")

	cmd.AddCommand(
		newPublicationsCmd(),
		newFilterCmd(),
		newCrawlCmd(),
		newPaginateCmd(),
		newStatsCmd(),
		newDatasetCmd(),
	)
	return cmd
}

// Execute is the main entry point. The command context is cancelled on
// SIGINT/SIGTERM so long crawls shut down at the next safe boundary.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}

// loadSettings reads the typed settings from the global Viper instance.
func loadSettings() (appconfig.Settings, error) {
	return appconfig.Load(viper.GetViper())
}

// newPage launches the shared headless browser session.
func newPage(s appconfig.Settings, logger *zap.Logger) (pageclient.Client, error) {
	return pageclient.NewChrome(pageclient.Config{
		UserAgent:   s.Archive.UserAgent,
		DownloadDir: s.Browser.DownloadDir,
		Headless:    s.Browser.Headless,
		NavTimeout:  s.Browser.NavTimeout,
	}, logger)
}

// ensureParent creates the directory a data file lives in.
func ensureParent(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
