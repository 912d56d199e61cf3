package browser

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/verba/internal/common"
	"github.com/ternarybob/verba/internal/interfaces"
	"github.com/ternarybob/verba/internal/models"
)

// Chrome creates one disposable browser context per scrape attempt. Unlike
// a pooled setup, contexts here are intentionally never reused: each account
// attempt gets a clean cookie jar and the whole context is torn down on
// every exit path.
type Chrome struct {
	config common.BrowserConfig
	logger arbor.ILogger
}

// NewChrome creates a Chrome page factory
func NewChrome(config common.BrowserConfig, logger arbor.ILogger) *Chrome {
	return &Chrome{
		config: config,
		logger: logger,
	}
}

// NewPage launches a fresh browser context and verifies it responds before
// handing it to the caller.
func (c *Chrome) NewPage(ctx context.Context) (interfaces.Page, error) {
	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.config.Headless),
		chromedp.Flag("disable-gpu", c.config.DisableGPU),
		chromedp.Flag("no-sandbox", c.config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(c.config.UserAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	page := &Page{
		ctx:             browserCtx,
		browserCancel:   browserCancel,
		allocatorCancel: allocatorCancel,
		config:          c.config,
		logger:          c.logger,
	}

	// Startup test so a broken Chrome install fails fast instead of during
	// the login flow.
	testCtx, testCancel := context.WithTimeout(browserCtx, c.config.WaitTimeout)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	c.logger.Debug().Bool("headless", c.config.Headless).Msg("Browser context created")
	return page, nil
}

// Page wraps a single chromedp browser context.
type Page struct {
	ctx             context.Context
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc
	config          common.BrowserConfig
	logger          arbor.ILogger
	closeOnce       sync.Once
}

// run executes chromedp actions against the page's own context, bounded by
// the caller's context and the given timeout.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(runCtx, actions...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

// Navigate loads a URL and pauses briefly so client-side rendering settles.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, p.config.RequestTimeout,
		chromedp.Navigate(url),
		chromedp.Sleep(p.humanDelay()),
	); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Location returns the current page URL.
func (p *Page) Location(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, p.config.WaitTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

// WaitVisible blocks until the selector is visible or the timeout elapses.
func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := p.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q failed: %w", selector, err)
	}
	return nil
}

// IsVisible reports current selector visibility without waiting for it.
func (p *Page) IsVisible(ctx context.Context, selector string) (bool, error) {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		const style = window.getComputedStyle(el);
		return style.display !== 'none' && style.visibility !== 'hidden' && el.offsetParent !== null;
	})()`, strconv.Quote(selector))

	var visible bool
	if err := p.run(ctx, p.config.WaitTimeout, chromedp.Evaluate(js, &visible)); err != nil {
		return false, fmt.Errorf("visibility check for %q failed: %w", selector, err)
	}
	return visible, nil
}

// Click clicks the first node matching the selector.
func (p *Page) Click(ctx context.Context, selector string) error {
	if err := p.run(ctx, p.config.WaitTimeout,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.Sleep(p.humanDelay()),
	); err != nil {
		return fmt.Errorf("click on %q failed: %w", selector, err)
	}
	return nil
}

// SendKeys types text into the first node matching the selector.
func (p *Page) SendKeys(ctx context.Context, selector, text string) error {
	if err := p.run(ctx, p.config.WaitTimeout,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("typing into %q failed: %w", selector, err)
	}
	return nil
}

// Text returns the trimmed inner text of the first matching node.
func (p *Page) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if err := p.run(ctx, p.config.WaitTimeout, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading text of %q failed: %w", selector, err)
	}
	return strings.TrimSpace(text), nil
}

// BodyText returns the full visible text of the page body.
func (p *Page) BodyText(ctx context.Context) (string, error) {
	var text string
	if err := p.run(ctx, p.config.WaitTimeout, chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading body text failed: %w", err)
	}
	return text, nil
}

// OuterHTML returns the outer HTML of the first matching node.
func (p *Page) OuterHTML(ctx context.Context, selector string) (string, error) {
	var html string
	if err := p.run(ctx, p.config.WaitTimeout, chromedp.OuterHTML(selector, &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading HTML of %q failed: %w", selector, err)
	}
	return html, nil
}

// SetCookies injects stored cookies into the browser. Individual cookie
// failures are logged and skipped so one stale cookie does not block the
// rest of the session.
func (p *Page) SetCookies(ctx context.Context, cookies []models.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}

	err := p.run(ctx, p.config.WaitTimeout,
		network.Enable(),
		chromedp.ActionFunc(func(actionCtx context.Context) error {
			for _, c := range cookies {
				param := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly)

				switch strings.ToLower(c.SameSite) {
				case "strict":
					param = param.WithSameSite(network.CookieSameSiteStrict)
				case "lax":
					param = param.WithSameSite(network.CookieSameSiteLax)
				case "none":
					param = param.WithSameSite(network.CookieSameSiteNone)
				}

				if c.Expires > 0 {
					expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
					param = param.WithExpires(&expires)
				}

				if err := param.Do(actionCtx); err != nil {
					p.logger.Warn().Err(err).Str("cookie", c.Name).Msg("Failed to inject cookie, skipping")
				}
			}
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("cookie injection failed: %w", err)
	}

	p.logger.Debug().Int("cookies", len(cookies)).Msg("Cookies injected into browser")
	return nil
}

// Cookies harvests the browser's current cookies.
func (p *Page) Cookies(ctx context.Context) ([]models.Cookie, error) {
	var harvested []*network.Cookie
	err := p.run(ctx, p.config.WaitTimeout,
		chromedp.ActionFunc(func(actionCtx context.Context) error {
			cookies, err := network.GetCookies().Do(actionCtx)
			if err != nil {
				return err
			}
			harvested = cookies
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("cookie harvest failed: %w", err)
	}

	result := make([]models.Cookie, 0, len(harvested))
	for _, c := range harvested {
		result = append(result, models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: string(c.SameSite),
		})
	}
	return result, nil
}

// UserAgent returns the identity string the page presents upstream.
func (p *Page) UserAgent() string {
	return p.config.UserAgent
}

// Snapshot captures a screenshot and the page HTML for post-mortem
// diagnosis of a failed flow. Best effort: failures are logged, not
// propagated.
func (p *Page) Snapshot(ctx context.Context, label string) (string, error) {
	if p.config.SnapshotDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(p.config.SnapshotDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	stamp := time.Now().Format("20060102-150405")
	base := filepath.Join(p.config.SnapshotDir, fmt.Sprintf("%s-%s", label, stamp))

	var shot []byte
	var html string
	if err := p.run(ctx, p.config.WaitTimeout,
		chromedp.FullScreenshot(&shot, 80),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("snapshot capture failed: %w", err)
	}

	if err := os.WriteFile(base+".png", shot, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot image: %w", err)
	}
	if err := os.WriteFile(base+".html", []byte(html), 0644); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to write snapshot HTML")
	}

	p.logger.Info().Str("path", base+".png").Msg("Diagnostic snapshot captured")
	return base + ".png", nil
}

// Close tears down the browser and allocator contexts. Safe to call more
// than once.
func (p *Page) Close() {
	p.closeOnce.Do(func() {
		if p.browserCancel != nil {
			p.browserCancel()
		}
		if p.allocatorCancel != nil {
			p.allocatorCancel()
		}
		p.logger.Debug().Msg("Browser context closed")
	})
}

// humanDelay returns a randomized delay inside the configured bounds, used
// to avoid the uniform timing profile of automated traffic.
func (p *Page) humanDelay() time.Duration {
	min := p.config.MinHumanDelay
	max := p.config.MaxHumanDelay
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
