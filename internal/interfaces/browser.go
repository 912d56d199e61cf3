package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/verba/internal/models"
)

// Page is the capability surface of one isolated browser-automation
// context. Implementations wrap a real chromedp context; tests substitute
// a scripted fake. Every operation is bounded by the page's own timeout
// and returns an error instead of hanging.
type Page interface {
	// Navigate loads a URL and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// Location returns the current page URL.
	Location(ctx context.Context) (string, error)

	// WaitVisible blocks until the selector is visible or the wait times out.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// IsVisible reports selector visibility without waiting.
	IsVisible(ctx context.Context, selector string) (bool, error)

	// Click clicks the first node matching the selector.
	Click(ctx context.Context, selector string) error

	// SendKeys types text into the first node matching the selector.
	SendKeys(ctx context.Context, selector, text string) error

	// Text returns the trimmed inner text of the first matching node.
	Text(ctx context.Context, selector string) (string, error)

	// BodyText returns the full visible text of the page body.
	BodyText(ctx context.Context) (string, error)

	// OuterHTML returns the outer HTML of the first matching node.
	OuterHTML(ctx context.Context, selector string) (string, error)

	// SetCookies injects stored cookies into the browser before navigation.
	SetCookies(ctx context.Context, cookies []models.Cookie) error

	// Cookies harvests the browser's current cookies.
	Cookies(ctx context.Context) ([]models.Cookie, error)

	// UserAgent returns the identity string the page presents upstream.
	UserAgent() string

	// Snapshot writes a diagnostic capture of the current page state and
	// returns its path. Best effort; used when a flow fails unexpectedly.
	Snapshot(ctx context.Context, label string) (string, error)

	// Close tears the context down. Safe to call more than once; called on
	// every exit path of an attempt.
	Close()
}

// Browser creates one disposable Page per scrape attempt. Pages are never
// shared across accounts or retries.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
}
