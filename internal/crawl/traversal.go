// Package crawl implements the resumable issue harvest: the listing
// traversal state machine and the orchestrator that drives it over the
// publication list, deduplicates against the record store, and dispatches
// downloads.
package crawl

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/newsarchive/harvester/internal/extract"
	"github.com/newsarchive/harvester/internal/pageclient"
)

// PageHandler consumes one parsed listing page. pageNum is 1-based.
type PageHandler func(ctx context.Context, doc *goquery.Document, pageNum int)

// Traversal walks one publication's paginated issue listing.
type Traversal struct {
	page     pageclient.Client
	baseURL  string
	timeout  time.Duration
	delayMin time.Duration
	delayMax time.Duration
	logger   *zap.Logger
}

// NewTraversal constructs a Traversal over the given page client.
func NewTraversal(page pageclient.Client, baseURL string, timeout, delayMin, delayMax time.Duration, logger *zap.Logger) *Traversal {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Traversal{
		page:     page,
		baseURL:  baseURL,
		timeout:  timeout,
		delayMin: delayMin,
		delayMax: delayMax,
		logger:   logger,
	}
}

// Visit loads startURL and hands every listing page to handle until the
// pagination is exhausted. A page that never renders its item markers
// terminates traversal for this entity with an error the caller logs;
// an absent or disabled next control is the normal end of the listing.
func (t *Traversal) Visit(ctx context.Context, startURL string, handle PageHandler) error {
	target, err := t.resolve(startURL)
	if err != nil {
		return fmt.Errorf("resolve listing url %q: %w", startURL, err)
	}
	if err := t.page.Navigate(ctx, target); err != nil {
		return fmt.Errorf("navigate listing: %w", err)
	}

	for pageNum := 1; ; pageNum++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.page.WaitVisible(ctx, extract.ItemSelector, t.timeout); err != nil {
			return fmt.Errorf("listing page %d never rendered: %w", pageNum, err)
		}
		courtesy(ctx, t.delayMin, t.delayMax)

		html, err := t.page.HTML(ctx)
		if err != nil {
			return fmt.Errorf("snapshot listing page %d: %w", pageNum, err)
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return fmt.Errorf("parse listing page %d: %w", pageNum, err)
		}

		if doc.Find(extract.ItemSelector).Length() == 0 {
			t.logger.Debug("No items on listing page", zap.Int("page", pageNum))
			return nil
		}

		handle(ctx, doc, pageNum)

		state, nextHref := extract.NextControl(doc)
		switch state {
		case extract.NextEnabled:
			if err := t.followNext(ctx, nextHref); err != nil {
				t.logger.Warn("Could not advance to next listing page",
					zap.Int("page", pageNum), zap.Error(err))
				return nil
			}
		case extract.NextDisabled:
			t.logger.Debug("Disabled next control, end of listing", zap.Int("pages", pageNum))
			return nil
		default:
			t.logger.Debug("No pagination control found, treating as end of listing",
				zap.Int("pages", pageNum))
			return nil
		}
	}
}

// followNext navigates to the next page's target URL when one exists and
// falls back to clicking the control when the href carries no target.
func (t *Traversal) followNext(ctx context.Context, href string) error {
	if href != "" {
		target, err := t.resolve(href)
		if err != nil {
			return err
		}
		return t.page.Navigate(ctx, target)
	}
	return t.page.Click(ctx, extract.NextControlSelector)
}

func (t *Traversal) resolve(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return raw, nil
	}
	base, err := url.Parse(t.baseURL)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}

// courtesy sleeps for a random duration in [min, max] to bound the
// request rate. Zero bounds disable the pause.
func courtesy(ctx context.Context, min, max time.Duration) {
	if max <= 0 || max < min {
		return
	}
	d := min
	if span := max - min; span > 0 {
		d += time.Duration(rand.Int63n(int64(span)))
	}
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
