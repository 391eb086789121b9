// Package download materializes remote PDF resources to disk. The primary
// strategy is a direct streamed HTTP retrieval; when the transport itself
// fails, the manager falls back to triggering the download through the
// page client and watching the browser's download directory.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/newsarchive/harvester/internal/pageclient"
)

// Config controls retrieval behavior.
type Config struct {
	// BaseURL resolves relative download links.
	BaseURL string
	// UserAgent is sent on direct retrievals.
	UserAgent string
	// Timeout bounds one retrieval attempt, direct or fallback.
	Timeout time.Duration
	// PollInterval is how often the fallback scans the download dir.
	PollInterval time.Duration
	// SettleDelay is waited after a fallback download appears, so the
	// browser finishes writing before the file is moved.
	SettleDelay time.Duration
	// RatePerSecond bounds direct retrievals across workers. Zero
	// disables the limiter.
	RatePerSecond float64
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 2 * time.Second
	}
}

// Manager fetches remote resources to local paths. Safe for concurrent
// use; the interactive fallback serializes on the page client's own lock.
type Manager struct {
	cfg     Config
	client  *http.Client
	page    pageclient.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New constructs a Manager. page may be nil, which disables the fallback
// strategy.
func New(cfg Config, page pageclient.Client, logger *zap.Logger) *Manager {
	cfg.applyDefaults()
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return &Manager{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		page:    page,
		limiter: limiter,
		logger:  logger,
	}
}

// Fetch materializes link at destPath and reports success. Failures are
// logged, never raised: the caller records the outcome. Fetch does not
// check for a pre-existing destination; skip-if-exists belongs to the
// caller's resume logic.
func (m *Manager) Fetch(ctx context.Context, link, destPath string) bool {
	fullURL, err := m.resolve(link)
	if err != nil {
		m.logger.Warn("Unresolvable download link", zap.String("link", link), zap.Error(err))
		return false
	}

	ok, transportErr := m.fetchDirect(ctx, fullURL, destPath)
	if ok {
		return true
	}
	if transportErr == nil {
		// A non-OK status is a definitive answer, not a transport
		// failure; the interactive fallback would only get the same
		// response.
		return false
	}

	m.logger.Warn("Direct download failed, trying page-client fallback",
		zap.String("url", fullURL), zap.Error(transportErr))
	return m.fetchViaPageClient(ctx, link, destPath)
}

func (m *Manager) resolve(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse link: %w", err)
	}
	if u.IsAbs() {
		return link, nil
	}
	base, err := url.Parse(m.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	return base.ResolveReference(u).String(), nil
}

// fetchDirect streams the response body to destPath. Returns ok=false
// with a nil error for non-OK statuses only; transport and local write
// failures come back as errors and let the caller fall back.
func (m *Manager) fetchDirect(ctx context.Context, fullURL, destPath string) (bool, error) {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return false, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	if m.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", m.cfg.UserAgent)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", fullURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		m.logger.Warn("Download returned non-OK status",
			zap.String("url", fullURL), zap.Int("status", resp.StatusCode))
		return false, nil
	}

	// Local write failures count as primary-path errors, so the caller
	// still tries the interactive fallback.
	out, err := os.Create(destPath)
	if err != nil {
		return false, fmt.Errorf("create %s: %w", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		// A partial file may remain on disk; the next run's resume
		// logic detects it rather than assuming absence.
		return false, fmt.Errorf("stream %s: %w", fullURL, err)
	}
	return true, nil
}

// fetchViaPageClient clicks the matching download link in the rendered
// page and polls the browser's download directory for the new file.
func (m *Manager) fetchViaPageClient(ctx context.Context, link, destPath string) bool {
	if m.page == nil || m.page.DownloadDir() == "" {
		return false
	}

	start := time.Now()
	if err := m.clickDownloadLink(ctx, link); err != nil {
		m.logger.Warn("Fallback click failed", zap.String("link", link), zap.Error(err))
		return false
	}

	got := m.awaitDownload(ctx, start)
	if got == "" {
		m.logger.Warn("Fallback download never appeared", zap.String("link", link))
		return false
	}

	sleepCtx(ctx, m.cfg.SettleDelay)
	if err := moveFile(got, destPath); err != nil {
		m.logger.Warn("Could not move fallback download",
			zap.String("from", got), zap.String("to", destPath), zap.Error(err))
		return false
	}
	return true
}

func (m *Manager) clickDownloadLink(ctx context.Context, link string) error {
	if err := m.page.Click(ctx, fmt.Sprintf(`a[href=%q]`, link)); err == nil {
		return nil
	}
	// The rendered href may carry extra query parameters; retry with a
	// prefix match on the path part.
	path := link
	if i := strings.IndexByte(link, '?'); i >= 0 {
		path = link[:i]
	}
	return m.page.Click(ctx, fmt.Sprintf(`a[href^=%q]`, path))
}

// awaitDownload polls for the newest PDF modified since just before the
// click, within the configured timeout window.
func (m *Manager) awaitDownload(ctx context.Context, start time.Time) string {
	deadline := start.Add(m.cfg.Timeout)
	cutoff := start.Add(-10 * time.Second)

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ""
		}
		if newest := newestPDF(m.page.DownloadDir()); newest != "" {
			if info, err := os.Stat(newest); err == nil && info.ModTime().After(cutoff) {
				return newest
			}
		}
		sleepCtx(ctx, m.cfg.PollInterval)
	}
	return ""
}

func newestPDF(dir string) string {
	matches, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	newest, newestMod := "", time.Time{}
	for _, p := range matches {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.ModTime().After(newestMod) {
			newest, newestMod = p, info.ModTime()
		}
	}
	return newest
}

// moveFile renames, falling back to copy+remove across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return os.Remove(src)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
