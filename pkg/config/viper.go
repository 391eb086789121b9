// Package config is responsible for initializing the application's configuration.
// It uses the Viper library to read settings from a config file, environment
// variables, and command-line flags, providing a unified configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/newsarchive/harvester/internal/logging"
)

// InitConfig initializes the application's configuration using Viper.
// It sets up default values, defines configuration search paths, and enables
// reading from environment variables. This function is designed to be called
// once at application startup so configuration is loaded and available to
// all other packages.
func InitConfig() {
	// --- Set Search Paths ---
	viper.SetConfigName("config")
	viper.AddConfigPath(".")                // Current working directory
	viper.AddConfigPath("/etc/harvester/")  // System-wide configuration
	viper.AddConfigPath("$HOME/.harvester") // User-specific configuration

	// --- Set Defaults ---
	const defaultUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	viper.SetDefault("archive.base_url", "https://hemerotecadigital.bne.es")
	viper.SetDefault("archive.start_url", "https://hemerotecadigital.bne.es/hd/es/fulltext")
	viper.SetDefault("archive.user_agent", defaultUA)

	viper.SetDefault("data.dir", "data")
	viper.SetDefault("data.publications_csv", "data/publications/list.csv")
	viper.SetDefault("data.publications_images_dir", "data/publications/images")
	viper.SetDefault("data.filtered_csv", "data/publications/filtered.csv")
	viper.SetDefault("data.issues_csv", "data/issues/list.csv")
	viper.SetDefault("data.failed_issues_csv", "data/issues/failed.csv")
	viper.SetDefault("data.issues_dir", "data/issues")
	viper.SetDefault("data.pages_dir", "data/pages")
	viper.SetDefault("data.dataset_path", "data/publications/publications.parquet")

	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.download_dir", "data/browser-downloads")
	viper.SetDefault("browser.nav_timeout", "45s")

	viper.SetDefault("crawler.workers", 4)
	viper.SetDefault("crawler.page_timeout", "15s")
	viper.SetDefault("crawler.page_delay_min", "2s")
	viper.SetDefault("crawler.page_delay_max", "3s")
	viper.SetDefault("crawler.entity_delay_min", "2s")
	viper.SetDefault("crawler.entity_delay_max", "3s")
	viper.SetDefault("crawler.detail_delay_min", "1s")
	viper.SetDefault("crawler.detail_delay_max", "2s")

	viper.SetDefault("download.timeout", "60s")
	viper.SetDefault("download.rate_per_second", 2.0)

	viper.SetDefault("paginate.workers", 0) // 0 means one per CPU
	viper.SetDefault("paginate.failure_log", "data/pages/failed.log")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.enabled", false)

	viper.SetDefault("dataset.bucket", "")
	viper.SetDefault("dataset.object", "publications.parquet")

	// --- Environment Variables ---
	viper.SetEnvPrefix("HARVESTER") // e.g., HARVESTER_ARCHIVE_BASE_URL=...
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// --- Read Config File ---
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
