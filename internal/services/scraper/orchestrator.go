// Package scraper contains the multi-account scraping orchestrator and the
// results-table extraction engine. The orchestrator owns the failover loop:
// accounts are tried strictly sequentially, each inside its own disposable
// browser context, until one attempt produces a result set or the pool is
// exhausted.
package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/verba/internal/common"
	"github.com/ternarybob/verba/internal/interfaces"
	"github.com/ternarybob/verba/internal/models"
)

// SearchSelectors identifies the search and results UI elements.
type SearchSelectors struct {
	SearchInput       string
	SearchButton      string
	ResultsRoute      string
	TabLink           string // format string, receives the tab name
	LanguageIndicator string
	LanguageOption    string // format string, receives the language code
}

// DefaultSearchSelectors returns the selector set for the current upstream
// markup.
func DefaultSearchSelectors() SearchSelectors {
	return SearchSelectors{
		SearchInput:       "input[name='keyword'], #search-keyword",
		SearchButton:      "button[type='submit'].search, button.btn-search",
		ResultsRoute:      "/search/",
		TabLink:           "a[data-category='%s']",
		LanguageIndicator: ".language-selector .selected",
		LanguageOption:    ".language-selector [data-language='%s']",
	}
}

// Orchestrator implements the KeywordScraper contract across a pool of
// accounts with persisted sessions.
type Orchestrator struct {
	config    *common.Config
	accounts  []models.Account
	store     interfaces.SessionStore
	browser   interfaces.Browser
	auth      interfaces.Authenticator
	extractor *Extractor
	selectors SearchSelectors
	limiter   *rate.Limiter
	validate  *validator.Validate
	logger    arbor.ILogger
}

// NewOrchestrator creates the scraping orchestrator.
func NewOrchestrator(
	config *common.Config,
	store interfaces.SessionStore,
	browser interfaces.Browser,
	authenticator interfaces.Authenticator,
	logger arbor.ILogger,
) *Orchestrator {
	delay := config.Scraper.AttemptDelay
	if delay <= 0 {
		delay = time.Second
	}

	return &Orchestrator{
		config:    config,
		accounts:  config.Accounts.Account,
		store:     store,
		browser:   browser,
		auth:      authenticator,
		extractor: NewExtractor(config.Scraper.TableRetries, config.Scraper.TableBackoff, logger),
		selectors: DefaultSearchSelectors(),
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		validate:  validator.New(),
		logger:    logger,
	}
}

// Scrape runs the request against the account pool and returns the first
// successful result set, or an aggregate error once every account has been
// tried. It never returns a partial result alongside an error.
func (o *Orchestrator) Scrape(ctx context.Context, req models.ScrapeRequest) (*models.KeywordResultSet, error) {
	req.Normalize()

	if err := o.validateRequest(req); err != nil {
		return nil, err
	}

	if len(o.accounts) == 0 {
		return nil, models.NewNoAccountsError()
	}

	ordered := o.orderAccounts(ctx)
	failures := make([]models.AttemptFailure, 0, len(ordered))

	for i, account := range ordered {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, models.NewExtractionError(account.Key(), err)
		}

		o.logger.Info().
			Str("account", account.Key()).
			Int("position", i+1).
			Int("pool_size", len(ordered)).
			Str("keyword", req.Keyword).
			Str("platform", string(req.Platform)).
			Msg("Starting scrape attempt")

		result, err := o.attempt(ctx, account, req)
		if err != nil {
			// A failed session is never trusted again, whatever the kind.
			if deleteErr := o.store.Delete(ctx, account.Key()); deleteErr != nil {
				o.logger.Warn().Err(deleteErr).Str("account", account.Key()).Msg("Failed to invalidate session after error")
			}

			failures = append(failures, models.AttemptFailure{
				Account: account.Key(),
				Kind:    models.KindOf(err),
				Reason:  err.Error(),
			})
			o.logger.Warn().Err(err).Str("account", account.Key()).Msg("Scrape attempt failed, advancing to next account")
			continue
		}

		return result, nil
	}

	return nil, &models.ExhaustedError{Attempts: failures}
}

func (o *Orchestrator) validateRequest(req models.ScrapeRequest) error {
	if err := o.validate.Struct(req); err != nil {
		return models.NewInvalidInputError("invalid request: %v", err)
	}
	if !req.Platform.Valid() {
		return models.NewInvalidInputError("unknown platform %q", req.Platform)
	}
	if !req.Tab.Valid() {
		return models.NewInvalidInputError("unknown result tab %q", req.Tab)
	}
	if req.MaxVolume != models.UnlimitedVolume && req.MaxVolume < req.MinVolume {
		return models.NewInvalidInputError("max volume %d is below min volume %d", req.MaxVolume, req.MinVolume)
	}
	return nil
}

// orderAccounts places accounts with a persisted session first, keeping the
// configured order otherwise. Reusing a live session skips the whole login
// flow, so accounts likely already authenticated go to the front.
func (o *Orchestrator) orderAccounts(ctx context.Context) []models.Account {
	withSession := make([]models.Account, 0, len(o.accounts))
	withoutSession := make([]models.Account, 0, len(o.accounts))

	for _, account := range o.accounts {
		if _, ok := o.store.Load(ctx, account.Key()); ok {
			withSession = append(withSession, account)
		} else {
			withoutSession = append(withoutSession, account)
		}
	}

	return append(withSession, withoutSession...)
}

// attempt runs one full scrape cycle for a single account: session load,
// browser open, login-or-guest, search, extraction. The browser context is
// torn down on every exit path.
func (o *Orchestrator) attempt(ctx context.Context, account models.Account, req models.ScrapeRequest) (*models.KeywordResultSet, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.config.Browser.RequestTimeout)
	defer cancel()

	page, err := o.browser.NewPage(attemptCtx)
	if err != nil {
		return nil, models.NewExtractionError(account.Key(), fmt.Errorf("failed to open browser: %w", err))
	}
	defer page.Close()

	stored, hasStored := o.store.Load(ctx, account.Key())
	if hasStored {
		if err := page.SetCookies(attemptCtx, stored.Cookies); err != nil {
			o.logger.Warn().Err(err).Str("account", account.Key()).Msg("Stored cookie injection failed, continuing without session")
			stored = nil
		}
	}

	if err := page.Navigate(attemptCtx, o.platformURL(req.Platform)); err != nil {
		return nil, models.NewExtractionError(account.Key(), err)
	}

	login, err := o.auth.Login(attemptCtx, page, account, stored)
	if err != nil {
		return nil, models.NewExtractionError(account.Key(), err)
	}

	// Guest fallback: a failed login does not abort the attempt. Blurred
	// free-tier data still beats no data, so the attempt continues
	// unauthenticated — but the outcome is remembered, and the cached
	// session goes away regardless.
	var loginFailure *models.ScrapeError
	if !login.State.Authenticated() {
		if err := o.store.Delete(ctx, account.Key()); err != nil {
			o.logger.Warn().Err(err).Str("account", account.Key()).Msg("Failed to invalidate session after login failure")
		}

		switch login.State {
		case interfaces.LoginStateChallenged:
			loginFailure = models.NewChallengeError(account.Key(), login.Message)
		default:
			loginFailure = models.NewRejectedError(account.Key(), login.Message)
		}

		o.logger.Warn().
			Str("account", account.Key()).
			Str("state", string(login.State)).
			Str("reason", login.Message).
			Msg("Login failed, proceeding as guest")
	}

	result, degraded, err := o.runSearch(attemptCtx, page, account, req)
	if err != nil {
		// When the login already failed, the account's real problem is the
		// login outcome, not whatever the guest flow tripped over.
		if loginFailure != nil {
			loginFailure.Err = err
			return nil, loginFailure
		}
		return nil, models.NewExtractionError(account.Key(), err)
	}

	// Persist the session only for an authenticated, non-degraded result: a
	// degraded table means the session was not worth keeping.
	if login.State.Authenticated() && !degraded {
		o.persistSession(attemptCtx, page, account)
	}

	return result, nil
}

// runSearch drives the platform page from search box to parsed results.
func (o *Orchestrator) runSearch(ctx context.Context, page interfaces.Page, account models.Account, req models.ScrapeRequest) (*models.KeywordResultSet, bool, error) {
	o.ensureLanguage(ctx, page)

	waitTimeout := o.config.Browser.WaitTimeout
	if err := page.WaitVisible(ctx, o.selectors.SearchInput, waitTimeout); err != nil {
		return nil, false, fmt.Errorf("search input not available: %w", err)
	}
	if err := page.SendKeys(ctx, o.selectors.SearchInput, req.Keyword); err != nil {
		return nil, false, err
	}
	if err := page.Click(ctx, o.selectors.SearchButton); err != nil {
		return nil, false, err
	}

	if err := o.waitResultsRoute(ctx, page); err != nil {
		return nil, false, err
	}

	if req.Tab != models.TabSuggestions {
		tabSelector := fmt.Sprintf(o.selectors.TabLink, req.Tab)
		if err := page.Click(ctx, tabSelector); err != nil {
			return nil, false, fmt.Errorf("failed to switch to %s tab: %w", req.Tab, err)
		}
	}

	bodyText, err := page.BodyText(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("Failed to read page text for aggregate totals")
	}
	totalVolume, averageTrend := ParseTotals(bodyText)

	extraction, err := o.extractor.Extract(ctx, page)
	if err != nil {
		return nil, false, err
	}

	filter := req.Filter()
	filtered := make([]models.KeywordRecord, 0, len(extraction.Records))
	for _, record := range extraction.Records {
		if filter.Contains(record.SearchVolume) {
			filtered = append(filtered, record)
		}
	}

	result := &models.KeywordResultSet{
		Account:            account.Key(),
		Keyword:            req.Keyword,
		Platform:           req.Platform,
		Tab:                req.Tab,
		TotalKeywordsFound: len(extraction.Records),
		TotalSearchVolume:  totalVolume,
		AverageTrend:       averageTrend,
		Filter:             filter,
		FilteredCount:      len(filtered),
		Degraded:           extraction.Degraded,
		Keywords:           filtered,
	}

	return result, extraction.Degraded, nil
}

// waitResultsRoute polls the location until it carries the results route
// fragment or the wait timeout elapses.
func (o *Orchestrator) waitResultsRoute(ctx context.Context, page interfaces.Page) error {
	deadline := time.Now().Add(o.config.Browser.WaitTimeout)

	for time.Now().Before(deadline) {
		loc, err := page.Location(ctx)
		if err == nil && strings.Contains(loc, o.selectors.ResultsRoute) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	return fmt.Errorf("results route never appeared within %s", o.config.Browser.WaitTimeout)
}

// ensureLanguage switches the results UI to the configured locale when it
// is not already set. Best effort: extraction selectors are locale-neutral,
// so a failed switch is logged and skipped.
func (o *Orchestrator) ensureLanguage(ctx context.Context, page interfaces.Page) {
	language := o.config.Scraper.Language
	if language == "" {
		return
	}

	current, err := page.Text(ctx, o.selectors.LanguageIndicator)
	if err != nil || strings.EqualFold(strings.TrimSpace(current), language) {
		return
	}

	if err := page.Click(ctx, o.selectors.LanguageIndicator); err != nil {
		o.logger.Debug().Err(err).Msg("Language selector not clickable, skipping locale switch")
		return
	}
	if err := page.Click(ctx, fmt.Sprintf(o.selectors.LanguageOption, language)); err != nil {
		o.logger.Debug().Err(err).Str("language", language).Msg("Language option not clickable, skipping locale switch")
	}
}

// persistSession harvests the live cookies and saves them for the next run.
// A save failure costs a future login, nothing more, so it is logged and
// swallowed.
func (o *Orchestrator) persistSession(ctx context.Context, page interfaces.Page, account models.Account) {
	cookies, err := page.Cookies(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Str("account", account.Key()).Msg("Failed to harvest cookies for session persistence")
		return
	}

	record := &models.SessionRecord{
		AccountID: account.Key(),
		Cookies:   cookies,
		UserAgent: page.UserAgent(),
	}
	if err := o.store.Save(ctx, record); err != nil {
		o.logger.Warn().Err(err).Str("account", account.Key()).Msg("Failed to persist session record")
		return
	}

	o.logger.Info().Str("account", account.Key()).Int("cookies", len(cookies)).Msg("Session persisted for reuse")
}

func (o *Orchestrator) platformURL(platform models.Platform) string {
	return strings.TrimRight(o.config.Scraper.BaseURL, "/") + "/" + string(platform)
}
