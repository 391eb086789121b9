package crawl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newsarchive/harvester/internal/extract"
	"github.com/newsarchive/harvester/internal/fsutil"
	"github.com/newsarchive/harvester/internal/metrics"
	"github.com/newsarchive/harvester/internal/pageclient"
	"github.com/newsarchive/harvester/internal/progress"
	"github.com/newsarchive/harvester/internal/store"
)

// issueResultsPath is the site path an issue's canonical link points at,
// keyed by the download id.
const issueResultsPath = "/hd/es/results?id="

// Fetcher retrieves one remote document to a local path. Satisfied by
// download.Manager.
type Fetcher interface {
	Fetch(ctx context.Context, link, destPath string) bool
}

// Config carries the orchestrator knobs.
type Config struct {
	// BaseURL is the archive origin, used to resolve relative listing and
	// download links and to mint canonical issue links.
	BaseURL string

	// IssuesDir is the root directory PDFs are stored under.
	IssuesDir string

	// Workers bounds concurrent downloads per listing page. Default 4.
	Workers int

	// PageTimeout bounds the wait for a listing page to render its items.
	// Default 15s.
	PageTimeout time.Duration

	// PageDelayMin/Max bound the randomized pause between listing pages.
	PageDelayMin time.Duration
	PageDelayMax time.Duration

	// EntityDelayMin/Max bound the randomized pause between publications.
	EntityDelayMin time.Duration
	EntityDelayMax time.Duration
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = 15 * time.Second
	}
}

// Orchestrator drives the issue harvest over a publication list. It is
// resumable: rows already present in the success store are skipped by
// issue key, and the publication recorded last is reprocessed from its
// first listing page.
type Orchestrator struct {
	cfg      Config
	page     pageclient.Client
	fetcher  Fetcher
	issues   *store.RecordStore
	failures *store.RecordStore
	tracker  *progress.Tracker
	logger   *zap.Logger

	mu    sync.Mutex
	known map[string]struct{}

	// newID mints issue keys when the site exposes no download id.
	newID func() string
}

// NewOrchestrator wires an orchestrator over the given stores and clients.
func NewOrchestrator(cfg Config, page pageclient.Client, fetcher Fetcher, issues, failures *store.RecordStore, tracker *progress.Tracker, logger *zap.Logger) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{
		cfg:      cfg,
		page:     page,
		fetcher:  fetcher,
		issues:   issues,
		failures: failures,
		tracker:  tracker,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// Run crawls the issue listings of pubs in order. Publications without an
// issues link are skipped. A traversal failure on one publication is
// logged and the run moves on; only context cancellation stops the run.
func (o *Orchestrator) Run(ctx context.Context, pubs []store.Publication) error {
	known, checkpoint := o.issues.LoadExistingKeys()
	o.known = known
	o.logger.Info("Loaded existing issues",
		zap.Int("known", len(known)), zap.String("checkpoint", checkpoint))

	pubs = resumeFrom(pubs, checkpoint, o.logger)
	o.tracker.SetEntitiesTotal(len(pubs))

	trav := NewTraversal(o.page, o.cfg.BaseURL, o.cfg.PageTimeout,
		o.cfg.PageDelayMin, o.cfg.PageDelayMax, o.logger)

	for i, pub := range pubs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if pub.IssuesLink == "" {
			o.logger.Debug("Publication has no issues link, skipping",
				zap.String("issn", pub.ISSN))
			o.tracker.EntityDone()
			continue
		}

		o.logger.Info("Crawling publication",
			zap.String("issn", pub.ISSN),
			zap.String("title", pub.Title),
			zap.Int("position", i+1),
			zap.Int("total", len(pubs)))

		err := trav.Visit(ctx, pub.IssuesLink, func(ctx context.Context, doc *goquery.Document, pageNum int) {
			o.handlePage(ctx, pub, doc, pageNum)
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.logger.Warn("Traversal ended early",
				zap.String("issn", pub.ISSN), zap.Error(err))
		}
		o.tracker.EntityDone()
		courtesy(ctx, o.cfg.EntityDelayMin, o.cfg.EntityDelayMax)
	}
	return ctx.Err()
}

// task pairs one new issue with its download target. DestPath is empty
// when the listing offered no download link; such issues are still
// recorded as successes.
type task struct {
	issue        store.Issue
	downloadLink string
	destPath     string
}

// handlePage extracts the issues on one listing page, drops the ones
// already harvested, and downloads the rest through the worker pool.
func (o *Orchestrator) handlePage(ctx context.Context, pub store.Publication, doc *goquery.Document, pageNum int) {
	var tasks []task
	var skipped int

	doc.Find(extract.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		parts := extract.ParseIssueParts(item)
		downloadLink := extract.DownloadLink(item)

		key := extract.DownloadID(downloadLink)
		issueLink := ""
		if key != "" {
			issueLink = strings.TrimSuffix(o.cfg.BaseURL, "/") + issueResultsPath + key
		} else {
			// No stable id on the download link. Mint a random key; a rerun
			// cannot recognize such an issue and will record it again.
			key = o.newID()
		}

		if o.isKnown(key) {
			skipped++
			return
		}

		issue := store.Issue{
			PublicationISSN: pub.ISSN,
			UUID:            key,
			Name:            parts.Name,
			Date:            parts.Date,
			Number:          parts.Number,
			Pages:           parts.Pages,
			Link:            issueLink,
		}

		destPath := ""
		if downloadLink != "" {
			destPath = o.pdfPath(pub, key)
		}
		tasks = append(tasks, task{issue: issue, downloadLink: downloadLink, destPath: destPath})
	})

	total := len(tasks) + skipped
	o.tracker.AddDiscovered(total)
	metrics.IncIssuesDiscovered(pub.ISSN, total)
	for i := 0; i < skipped; i++ {
		o.tracker.Skipped()
		metrics.IncIssuesSkipped()
	}
	o.logger.Info("Listing page parsed",
		zap.String("issn", pub.ISSN),
		zap.Int("page", pageNum),
		zap.Int("new", len(tasks)),
		zap.Int("skipped", skipped))

	if len(tasks) > 0 {
		o.downloadAll(ctx, tasks)
	}
}

// downloadAll runs the page's download tasks through a bounded pool and
// records each outcome as it completes.
func (o *Orchestrator) downloadAll(ctx context.Context, tasks []task) {
	sem := make(chan struct{}, o.cfg.Workers)
	var wg sync.WaitGroup

	for _, t := range tasks {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(t task) {
			defer wg.Done()
			defer func() { <-sem }()
			o.runTask(ctx, t)
		}(t)
	}
	wg.Wait()
}

// runTask performs one download and appends the row to the matching
// store. Issues without a download target count as successes.
func (o *Orchestrator) runTask(ctx context.Context, t task) {
	ok := true
	if t.destPath != "" {
		if err := os.MkdirAll(filepath.Dir(t.destPath), 0o755); err != nil {
			o.logger.Error("Could not create issue directory",
				zap.String("path", t.destPath), zap.Error(err))
			ok = false
		} else {
			ok = o.fetcher.Fetch(ctx, t.downloadLink, t.destPath)
		}
	}

	if ok {
		o.recordSuccess(t.issue)
		o.tracker.Downloaded()
		metrics.IncIssuesDownloaded()
	} else {
		o.recordFailure(t.issue)
		o.tracker.Failed()
		metrics.IncIssuesFailed()
	}
}

func (o *Orchestrator) recordSuccess(issue store.Issue) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.issues.Append(issue.Record()); err != nil {
		o.logger.Error("Could not record issue",
			zap.String("uuid", issue.UUID), zap.Error(err))
		return
	}
	o.known[issue.UUID] = struct{}{}
}

func (o *Orchestrator) recordFailure(issue store.Issue) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.failures.Append(issue.Record()); err != nil {
		o.logger.Error("Could not record failed issue",
			zap.String("uuid", issue.UUID), zap.Error(err))
	}
}

func (o *Orchestrator) isKnown(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.known[key]
	return ok
}

// pdfPath builds the on-disk location for an issue's PDF:
// {collection}/publication-{issn}/issue-{uuid}/{uuid}.pdf under the
// issues root, with unsafe path characters stripped.
func (o *Orchestrator) pdfPath(pub store.Publication, key string) string {
	collection := fsutil.SanitizeOr(pub.Collection, "unknown_collection")
	issn := fsutil.SanitizeOr(pub.ISSN, "unknown_issn")
	return filepath.Join(o.cfg.IssuesDir, collection,
		fmt.Sprintf("publication-%s", issn),
		fmt.Sprintf("issue-%s", key),
		key+".pdf")
}

// resumeFrom truncates pubs so the run restarts at the publication the
// last recorded row belongs to. The checkpointed publication itself is
// reprocessed in full; already harvested issues inside it are dropped by
// key. An unmatched checkpoint falls back to the full list.
func resumeFrom(pubs []store.Publication, checkpoint string, logger *zap.Logger) []store.Publication {
	if checkpoint == "" {
		return pubs
	}
	for i, pub := range pubs {
		if pub.ISSN == checkpoint {
			logger.Info("Resuming crawl",
				zap.String("issn", checkpoint),
				zap.Int("skipped_publications", i))
			return pubs[i:]
		}
	}
	logger.Warn("Checkpointed publication not in input, starting from the beginning",
		zap.String("issn", checkpoint))
	return pubs
}
