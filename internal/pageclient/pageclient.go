// Package pageclient defines the rendered-page capability the harvester
// crawls through, and its headless Chrome implementation. The underlying
// browser session holds navigation state and is not safe for concurrent
// commands, so serialization is part of the capability's contract: every
// implementation must make its methods mutually exclusive.
package pageclient

import (
	"context"
	"time"
)

// Client is a single rendered browser session. All methods are serialized
// by the implementation; callers may invoke them from multiple goroutines.
type Client interface {
	// Navigate loads url in the session's page.
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until selector is visible on the current page or
	// the timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// HTML returns the outer HTML of the current document.
	HTML(ctx context.Context) (string, error)
	// Click scrolls the first element matching selector into view and
	// clicks it.
	Click(ctx context.Context, selector string) error
	// DownloadDir is the directory browser-triggered downloads land in.
	DownloadDir() string
	// Close tears down the session.
	Close() error
}
