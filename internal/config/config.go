// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Settings captures every configuration knob that influences a harvest
// run. All values originate from Viper so the harvester can be configured
// via files, env vars, or CLI flags.
type Settings struct {
	Archive  ArchiveSettings
	Data     DataSettings
	Browser  BrowserSettings
	Crawler  CrawlerSettings
	Download DownloadSettings
	Paginate PaginateSettings
	Server   ServerSettings
	Dataset  DatasetSettings
}

// ArchiveSettings locate the remote archive.
type ArchiveSettings struct {
	BaseURL   string
	StartURL  string
	UserAgent string
}

// DataSettings locate every local artifact the pipeline reads or writes.
type DataSettings struct {
	Dir             string
	PublicationsCSV string
	ImagesDir       string
	FilteredCSV     string
	IssuesCSV       string
	FailedIssuesCSV string
	IssuesDir       string
	PagesDir        string
	DatasetPath     string
}

// BrowserSettings configure the headless browser session.
type BrowserSettings struct {
	Headless    bool
	DownloadDir string
	NavTimeout  time.Duration
}

// CrawlerSettings tune the crawl loops.
type CrawlerSettings struct {
	Workers        int
	PageTimeout    time.Duration
	PageDelayMin   time.Duration
	PageDelayMax   time.Duration
	EntityDelayMin time.Duration
	EntityDelayMax time.Duration
	DetailDelayMin time.Duration
	DetailDelayMax time.Duration
}

// DownloadSettings tune PDF retrieval.
type DownloadSettings struct {
	Timeout       time.Duration
	RatePerSecond float64
}

// PaginateSettings tune the page-splitting post-processor.
type PaginateSettings struct {
	Workers    int
	FailureLog string
}

// ServerSettings configure the optional status endpoint.
type ServerSettings struct {
	Enabled bool
	Addr    string
}

// DatasetSettings configure dataset publication.
type DatasetSettings struct {
	Bucket string
	Object string
}

// Load constructs Settings by reading from Viper.
func Load(v *viper.Viper) (Settings, error) {
	s := Settings{
		Archive: ArchiveSettings{
			BaseURL:   v.GetString("archive.base_url"),
			StartURL:  v.GetString("archive.start_url"),
			UserAgent: v.GetString("archive.user_agent"),
		},
		Data: DataSettings{
			Dir:             v.GetString("data.dir"),
			PublicationsCSV: v.GetString("data.publications_csv"),
			ImagesDir:       v.GetString("data.publications_images_dir"),
			FilteredCSV:     v.GetString("data.filtered_csv"),
			IssuesCSV:       v.GetString("data.issues_csv"),
			FailedIssuesCSV: v.GetString("data.failed_issues_csv"),
			IssuesDir:       v.GetString("data.issues_dir"),
			PagesDir:        v.GetString("data.pages_dir"),
			DatasetPath:     v.GetString("data.dataset_path"),
		},
		Browser: BrowserSettings{
			Headless:    v.GetBool("browser.headless"),
			DownloadDir: v.GetString("browser.download_dir"),
			NavTimeout:  v.GetDuration("browser.nav_timeout"),
		},
		Crawler: CrawlerSettings{
			Workers:        v.GetInt("crawler.workers"),
			PageTimeout:    v.GetDuration("crawler.page_timeout"),
			PageDelayMin:   v.GetDuration("crawler.page_delay_min"),
			PageDelayMax:   v.GetDuration("crawler.page_delay_max"),
			EntityDelayMin: v.GetDuration("crawler.entity_delay_min"),
			EntityDelayMax: v.GetDuration("crawler.entity_delay_max"),
			DetailDelayMin: v.GetDuration("crawler.detail_delay_min"),
			DetailDelayMax: v.GetDuration("crawler.detail_delay_max"),
		},
		Download: DownloadSettings{
			Timeout:       v.GetDuration("download.timeout"),
			RatePerSecond: v.GetFloat64("download.rate_per_second"),
		},
		Paginate: PaginateSettings{
			Workers:    v.GetInt("paginate.workers"),
			FailureLog: v.GetString("paginate.failure_log"),
		},
		Server: ServerSettings{
			Enabled: v.GetBool("server.enabled"),
			Addr:    v.GetString("server.addr"),
		},
		Dataset: DatasetSettings{
			Bucket: v.GetString("dataset.bucket"),
			Object: v.GetString("dataset.object"),
		},
	}
	return s, s.Validate()
}

// Validate checks for obviously bad configuration combinations.
func (s Settings) Validate() error {
	if s.Archive.BaseURL == "" {
		return fmt.Errorf("archive.base_url must be set")
	}
	if s.Archive.StartURL == "" {
		return fmt.Errorf("archive.start_url must be set")
	}
	if s.Archive.UserAgent == "" {
		return fmt.Errorf("archive.user_agent must be set")
	}
	if s.Crawler.Workers <= 0 {
		return fmt.Errorf("crawler.workers must be > 0")
	}
	if s.Crawler.PageTimeout <= 0 {
		return fmt.Errorf("crawler.page_timeout must be > 0")
	}
	if s.Crawler.PageDelayMax < s.Crawler.PageDelayMin {
		return fmt.Errorf("crawler.page_delay_max must be >= crawler.page_delay_min")
	}
	if s.Crawler.EntityDelayMax < s.Crawler.EntityDelayMin {
		return fmt.Errorf("crawler.entity_delay_max must be >= crawler.entity_delay_min")
	}
	if s.Download.Timeout <= 0 {
		return fmt.Errorf("download.timeout must be > 0")
	}
	if s.Download.RatePerSecond < 0 {
		return fmt.Errorf("download.rate_per_second must be >= 0")
	}
	if s.Paginate.Workers < 0 {
		return fmt.Errorf("paginate.workers must be >= 0")
	}
	if s.Server.Enabled && s.Server.Addr == "" {
		return fmt.Errorf("server.addr must be set when the status server is enabled")
	}
	return nil
}
