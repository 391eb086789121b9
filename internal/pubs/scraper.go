// Package pubs harvests the archive's publication catalogue: the master
// full-text table plus the per-publication detail pages, including cover
// images. The resulting table is the input the issue crawl runs over.
package pubs

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newsarchive/harvester/internal/extract"
	"github.com/newsarchive/harvester/internal/pageclient"
	"github.com/newsarchive/harvester/internal/store"
)

// Spanish field labels on the detail page.
const (
	labelOtherTitle  = "Otro título"
	labelCollection  = "Colección"
	labelDescription = "Descripción"
	labelGeoScope    = "Ámbito geográfico"
	labelPlace       = "Lugar de publicación"
	labelDateRange   = "Fecha"
	labelLanguage    = "Idioma"
	labelIssues      = "Ejemplares"
	labelPages       = "Páginas"
)

// Config carries the publication scraper knobs.
type Config struct {
	// BaseURL is the archive origin, used to resolve relative links.
	BaseURL string

	// StartURL is the master full-text listing page.
	StartURL string

	// ImagesDir is where cover images are stored, one per publication
	// keyed by its minted UUID.
	ImagesDir string

	// UserAgent is sent on direct image requests.
	UserAgent string

	// ListTimeout bounds the wait for the master table. Default 15s.
	ListTimeout time.Duration

	// DetailTimeout bounds the wait for a detail page's title. Default 10s.
	DetailTimeout time.Duration

	// DelayMin/Max bound the randomized pause between detail pages.
	DelayMin time.Duration
	DelayMax time.Duration
}

func (c *Config) applyDefaults() {
	if c.ListTimeout <= 0 {
		c.ListTimeout = 15 * time.Second
	}
	if c.DetailTimeout <= 0 {
		c.DetailTimeout = 10 * time.Second
	}
}

// Scraper walks the publication catalogue and appends one row per new
// publication. Already harvested ISSNs are skipped, so an interrupted run
// picks up where it left off.
type Scraper struct {
	cfg    Config
	page   pageclient.Client
	pubs   *store.RecordStore
	client *http.Client
	logger *zap.Logger

	newID func() string
}

// NewScraper wires a publication scraper. httpClient may be nil; a client
// with a 30s timeout is used then.
func NewScraper(cfg Config, page pageclient.Client, pubs *store.RecordStore, httpClient *http.Client, logger *zap.Logger) *Scraper {
	cfg.applyDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Scraper{
		cfg:    cfg,
		page:   page,
		pubs:   pubs,
		client: httpClient,
		logger: logger,
		newID:  uuid.NewString,
	}
}

// Run scrapes the master list, drops known ISSNs, and harvests the
// remaining detail pages in order. A failed detail page is logged and
// skipped; only context cancellation stops the run.
func (s *Scraper) Run(ctx context.Context) error {
	rows, err := s.masterList(ctx)
	if err != nil {
		return err
	}

	known, _ := s.pubs.LoadExistingKeys()
	var todo []extract.ListingRow
	for _, row := range rows {
		if _, ok := known[row.ISSN]; ok {
			continue
		}
		todo = append(todo, row)
	}
	s.logger.Info("Publication catalogue scanned",
		zap.Int("listed", len(rows)),
		zap.Int("known", len(known)),
		zap.Int("remaining", len(todo)))

	for i, row := range todo {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.logger.Info("Harvesting publication",
			zap.String("issn", row.ISSN),
			zap.String("title", row.Title),
			zap.Int("position", i+1),
			zap.Int("total", len(todo)))

		pub, err := s.detail(ctx, row)
		if err != nil {
			s.logger.Warn("Could not harvest publication detail",
				zap.String("issn", row.ISSN), zap.Error(err))
			continue
		}
		if err := s.pubs.Append(pub.Record()); err != nil {
			s.logger.Error("Could not record publication",
				zap.String("issn", pub.ISSN), zap.Error(err))
		}
		s.pause(ctx)
	}
	return ctx.Err()
}

// masterList loads the start page and extracts the publication table.
func (s *Scraper) masterList(ctx context.Context) ([]extract.ListingRow, error) {
	if err := s.page.Navigate(ctx, s.cfg.StartURL); err != nil {
		return nil, fmt.Errorf("navigate master list: %w", err)
	}
	if err := s.page.WaitVisible(ctx, "table", s.cfg.ListTimeout); err != nil {
		return nil, fmt.Errorf("master table never rendered: %w", err)
	}
	html, err := s.page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot master list: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse master list: %w", err)
	}
	return extract.MasterList(doc), nil
}

// detail harvests one publication's detail page.
func (s *Scraper) detail(ctx context.Context, row extract.ListingRow) (store.Publication, error) {
	link, err := s.resolve(row.Link)
	if err != nil {
		return store.Publication{}, fmt.Errorf("resolve detail link %q: %w", row.Link, err)
	}
	if err := s.page.Navigate(ctx, link); err != nil {
		return store.Publication{}, fmt.Errorf("navigate detail: %w", err)
	}
	if err := s.page.WaitVisible(ctx, ".title", s.cfg.DetailTimeout); err != nil {
		return store.Publication{}, fmt.Errorf("detail page never rendered: %w", err)
	}
	html, err := s.page.HTML(ctx)
	if err != nil {
		return store.Publication{}, fmt.Errorf("snapshot detail: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return store.Publication{}, fmt.Errorf("parse detail: %w", err)
	}

	id := s.newID()
	if src := extract.CoverImage(doc); src != "" {
		s.downloadImage(ctx, src, id, row.Title)
	}

	return store.Publication{
		UUID:             id,
		ISSN:             row.ISSN,
		Title:            extract.DetailTitle(doc, row.Title),
		OtherTitle:       extract.LabeledField(doc, labelOtherTitle),
		Collection:       extract.LabeledField(doc, labelCollection),
		Description:      extract.LabeledField(doc, labelDescription),
		GeographicScope:  extract.LabeledField(doc, labelGeoScope),
		PublicationPlace: extract.LabeledField(doc, labelPlace),
		DateRange:        extract.LabeledField(doc, labelDateRange),
		Language:         extract.LabeledField(doc, labelLanguage),
		IssuesCount:      extract.LabeledField(doc, labelIssues),
		TotalPages:       extract.LabeledField(doc, labelPages),
		DetailLink:       link,
		IssuesLink:       extract.IssuesLink(doc),
	}, nil
}

// downloadImage fetches the cover image to ImagesDir/{uuid}.{ext}. The
// image is best-effort; failures are logged and the publication row is
// recorded regardless.
func (s *Scraper) downloadImage(ctx context.Context, src, id, title string) {
	full, err := s.resolve(src)
	if err != nil {
		s.logger.Debug("Unresolvable image link", zap.String("src", src), zap.Error(err))
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("Image request failed", zap.String("title", title), zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		s.logger.Debug("Image request rejected",
			zap.String("title", title), zap.Int("status", resp.StatusCode))
		return
	}

	if err := os.MkdirAll(s.cfg.ImagesDir, 0o755); err != nil {
		s.logger.Warn("Could not create images directory", zap.Error(err))
		return
	}
	dest := filepath.Join(s.cfg.ImagesDir, id+imageExt(full))
	f, err := os.Create(dest)
	if err != nil {
		s.logger.Warn("Could not create image file", zap.String("path", dest), zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		s.logger.Warn("Image download interrupted", zap.String("path", dest), zap.Error(err))
		return
	}
	s.logger.Debug("Downloaded cover image", zap.String("title", title), zap.String("path", dest))
}

// imageExt guesses the extension from the image URL, defaulting to jpg.
func imageExt(src string) string {
	lower := strings.ToLower(src)
	switch {
	case strings.Contains(lower, "png"):
		return ".png"
	case strings.Contains(lower, "gif"):
		return ".gif"
	default:
		return ".jpg"
	}
}

func (s *Scraper) resolve(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return raw, nil
	}
	base, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}

// pause sleeps for a random duration between detail pages.
func (s *Scraper) pause(ctx context.Context) {
	min, max := s.cfg.DelayMin, s.cfg.DelayMax
	if max <= 0 || max < min {
		return
	}
	d := min
	if span := max - min; span > 0 {
		d += time.Duration(rand.Int63n(int64(span)))
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
