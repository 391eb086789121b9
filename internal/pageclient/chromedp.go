package pageclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config controls the headless Chrome session.
type Config struct {
	UserAgent   string
	DownloadDir string
	Headless    bool
	NavTimeout  time.Duration
}

// ChromeClient implements Client on top of chromedp. One browser tab is
// shared across all calls so page state (current listing page, pagination
// position) survives between commands; the mutex keeps commands from
// interleaving.
type ChromeClient struct {
	mu              sync.Mutex
	allocatorCancel context.CancelFunc
	tabCtx          context.Context
	tabCancel       context.CancelFunc
	cfg             Config
	logger          *zap.Logger
}

// NewChrome launches the browser session. A launch failure is fatal to
// the caller; there is no degraded mode without a page client.
func NewChrome(cfg Config, logger *zap.Logger) (*ChromeClient, error) {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 15 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(1920, 1080),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocatorCtx)

	warmup := []chromedp.Action{chromedp.ActionFunc(func(context.Context) error { return nil })}
	if cfg.DownloadDir != "" {
		warmup = append(warmup,
			browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
				WithDownloadPath(cfg.DownloadDir),
		)
	}
	if err := chromedp.Run(tabCtx, warmup...); err != nil {
		tabCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &ChromeClient{
		allocatorCancel: allocatorCancel,
		tabCtx:          tabCtx,
		tabCancel:       tabCancel,
		cfg:             cfg,
		logger:          logger,
	}, nil
}

// Navigate loads url in the shared tab.
func (c *ChromeClient) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, c.cfg.NavTimeout, chromedp.Navigate(url))
}

// WaitVisible blocks until selector renders or timeout elapses.
func (c *ChromeClient) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = c.cfg.NavTimeout
	}
	return c.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// HTML snapshots the current document.
func (c *ChromeClient) HTML(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, c.cfg.NavTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Click scrolls the element into view and clicks it.
func (c *ChromeClient) Click(ctx context.Context, selector string) error {
	return c.run(ctx, c.cfg.NavTimeout,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

// DownloadDir returns where browser-triggered downloads are written.
func (c *ChromeClient) DownloadDir() string {
	return c.cfg.DownloadDir
}

// Close tears down the tab and the allocator.
func (c *ChromeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tabCancel()
	c.allocatorCancel()
	return nil
}

// run executes actions against the shared tab under the session lock,
// bounded by timeout and canceled if the caller's context finishes first.
func (c *ChromeClient) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	taskCtx, cancel := context.WithTimeout(c.tabCtx, timeout)
	defer cancel()

	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
