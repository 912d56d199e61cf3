// Package auth drives the credential-submission flow against the upstream
// login page. The flow is modeled as an explicit state machine:
//
//	Unknown -> CheckingAuthState -> {AlreadyAuthenticated | SubmittingCredentials}
//	        -> {Authenticated | Rejected | Challenged | TimedOut}
//
// A Challenged outcome (OTP, CAPTCHA, rate limiting) is terminal for the
// account within one run; the orchestrator decides what happens next.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/verba/internal/common"
	"github.com/ternarybob/verba/internal/interfaces"
	"github.com/ternarybob/verba/internal/models"
)

// Selectors identifies the login-related UI elements. Kept together so a
// site markup change is a one-place fix.
type Selectors struct {
	LoginLink     string
	UserMenu      string
	EmailInput    string
	PasswordInput string
	SubmitButton  string
	InlineError   string
	ConsentButton string
}

// DefaultSelectors returns the selector set for the current upstream markup.
func DefaultSelectors() Selectors {
	return Selectors{
		LoginLink:     "a[href*='/user/login']",
		UserMenu:      ".user-menu, [data-testid='user-menu']",
		EmailInput:    "input[name='email'], input[type='email']",
		PasswordInput: "input[name='password'], input[type='password']",
		SubmitButton:  "button[type='submit']",
		InlineError:   ".alert-danger, .form-error",
		ConsentButton: "button[aria-label='Accept cookies'], .cookie-consent button",
	}
}

// Service is the login state machine.
type Service struct {
	selectors        Selectors
	loginURL         string
	challengeMarkers []string
	challengeRoutes  []string
	waitTimeout      time.Duration
	logger           arbor.ILogger
}

// NewService creates a login service from configuration.
func NewService(config *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		selectors:        DefaultSelectors(),
		loginURL:         config.LoginURL(),
		challengeMarkers: config.Scraper.ChallengeMarkers,
		challengeRoutes:  config.Scraper.ChallengeRoutes,
		waitTimeout:      config.Browser.WaitTimeout,
		logger:           logger,
	}
}

// Login determines whether the page is already authenticated and, if not,
// submits the account's credentials and classifies the outcome. The caller
// is expected to have injected the stored record's cookies and navigated to
// the target site before calling. A nil record means a fresh browser
// context, which cannot be authenticated, so the auth-state check is
// skipped and credentials are submitted directly.
func (s *Service) Login(ctx context.Context, page interfaces.Page, account models.Account, stored *models.SessionRecord) (*interfaces.LoginResult, error) {
	result := &interfaces.LoginResult{
		State:   interfaces.LoginStateChecking,
		Account: account.Key(),
	}

	if stored != nil {
		s.logger.Debug().
			Str("account", account.Key()).
			Int("cookies", len(stored.Cookies)).
			Msg("Checking restored session")

		authenticated, err := s.checkAuthState(ctx, page)
		if err != nil {
			// An unreadable page is inconclusive; fail safe toward re-login.
			s.logger.Warn().Err(err).Str("account", account.Key()).Msg("Auth state check failed, assuming not authenticated")
		}
		if authenticated {
			s.logger.Info().Str("account", account.Key()).Msg("Stored session still authenticated, skipping credential submission")
			result.State = interfaces.LoginStateAlreadyAuthenticated
			return result, nil
		}
	}

	return s.submitCredentials(ctx, page, account, result)
}

// checkAuthState inspects the current page in two steps. The absence of a
// login link alone is not proof of authentication (the link may simply not
// have rendered), so a positive authenticated-only signal is required
// before declaring the session live. Inconclusive reads as unauthenticated.
func (s *Service) checkAuthState(ctx context.Context, page interfaces.Page) (bool, error) {
	hasLoginAffordance, err := page.IsVisible(ctx, s.selectors.LoginLink)
	if err != nil {
		return false, fmt.Errorf("login affordance check failed: %w", err)
	}
	if hasLoginAffordance {
		return false, nil
	}

	hasUserMenu, err := page.IsVisible(ctx, s.selectors.UserMenu)
	if err != nil {
		return false, fmt.Errorf("user menu check failed: %w", err)
	}
	return hasUserMenu, nil
}

// submitCredentials fills and submits the login form, races the resulting
// navigation against the wait timeout, and classifies the terminal state.
func (s *Service) submitCredentials(ctx context.Context, page interfaces.Page, account models.Account, result *interfaces.LoginResult) (*interfaces.LoginResult, error) {
	result.State = interfaces.LoginStateSubmitting

	if err := page.Navigate(ctx, s.loginURL); err != nil {
		return nil, fmt.Errorf("failed to open login page: %w", err)
	}

	// Consent modals cover the form on first visits. Dismissal is best
	// effort: skip and continue when the selector is missing.
	s.dismissConsent(ctx, page)

	if err := s.fillAndSubmit(ctx, page, account); err != nil {
		if path, snapErr := page.Snapshot(ctx, "login-failure"); snapErr == nil && path != "" {
			s.logger.Error().Str("account", account.Key()).Str("snapshot", path).Msg("Login form interaction failed, snapshot captured")
		}
		return nil, fmt.Errorf("login form interaction failed: %w", err)
	}

	location, navigated := s.waitNavigation(ctx, page)
	if location == "" {
		result.State = interfaces.LoginStateTimedOut
		result.Message = "no response from login page before timeout"
		return result, nil
	}

	bodyText, err := page.BodyText(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read page text after submission")
	}

	return s.classify(ctx, page, result, location, bodyText, navigated)
}

func (s *Service) fillAndSubmit(ctx context.Context, page interfaces.Page, account models.Account) error {
	if err := page.WaitVisible(ctx, s.selectors.EmailInput, s.waitTimeout); err != nil {
		return fmt.Errorf("email field not found: %w", err)
	}
	if err := page.SendKeys(ctx, s.selectors.EmailInput, account.Email); err != nil {
		return err
	}
	if err := page.SendKeys(ctx, s.selectors.PasswordInput, account.Password); err != nil {
		return err
	}
	return page.Click(ctx, s.selectors.SubmitButton)
}

// waitNavigation polls the page location until it leaves the login page or
// the wait timeout elapses. Returns the last observed location and whether
// the page navigated away.
func (s *Service) waitNavigation(ctx context.Context, page interfaces.Page) (string, bool) {
	deadline := time.Now().Add(s.waitTimeout)
	location := ""

	for time.Now().Before(deadline) {
		loc, err := page.Location(ctx)
		if err == nil {
			location = loc
			if !s.isLoginPage(loc) {
				return location, true
			}
		}

		select {
		case <-ctx.Done():
			return location, false
		case <-time.After(500 * time.Millisecond):
		}
	}

	return location, false
}

// classify applies the terminal-state priority order: challenge signals
// first, then the still-on-login-page rejection check, authenticated last.
func (s *Service) classify(ctx context.Context, page interfaces.Page, result *interfaces.LoginResult, location, bodyText string, navigated bool) (*interfaces.LoginResult, error) {
	if marker := s.challengeSignal(location, bodyText); marker != "" {
		s.logger.Warn().Str("account", result.Account).Str("signal", marker).Msg("Login blocked by verification challenge")
		result.State = interfaces.LoginStateChallenged
		result.Message = fmt.Sprintf("verification challenge detected (%s)", marker)
		return result, nil
	}

	if !navigated || s.isLoginPage(location) {
		result.State = interfaces.LoginStateRejected
		result.Message = "login page did not accept credentials"
		if inline, err := page.Text(ctx, s.selectors.InlineError); err == nil && inline != "" {
			result.Message = inline
		}
		s.logger.Warn().Str("account", result.Account).Str("reason", result.Message).Msg("Login rejected")
		return result, nil
	}

	cookies, err := page.Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to harvest session cookies: %w", err)
	}

	result.State = interfaces.LoginStateAuthenticated
	result.Cookies = cookies
	result.UserAgent = page.UserAgent()
	s.logger.Info().Str("account", result.Account).Int("cookies", len(cookies)).Msg("Login succeeded")
	return result, nil
}

// challengeSignal returns the matched marker when the page or its URL
// carries a verification/rate-limit signal, or "" when clean.
func (s *Service) challengeSignal(location, bodyText string) string {
	lowerBody := strings.ToLower(bodyText)
	for _, marker := range s.challengeMarkers {
		if marker != "" && strings.Contains(lowerBody, strings.ToLower(marker)) {
			return marker
		}
	}

	lowerLoc := strings.ToLower(location)
	for _, route := range s.challengeRoutes {
		if route != "" && strings.Contains(lowerLoc, strings.ToLower(route)) {
			return "route:" + route
		}
	}
	return ""
}

func (s *Service) isLoginPage(location string) bool {
	return strings.Contains(location, s.loginURL) ||
		strings.Contains(location, "/user/login") ||
		strings.Contains(location, "/login")
}

func (s *Service) dismissConsent(ctx context.Context, page interfaces.Page) {
	visible, err := page.IsVisible(ctx, s.selectors.ConsentButton)
	if err != nil || !visible {
		return
	}
	if err := page.Click(ctx, s.selectors.ConsentButton); err != nil {
		s.logger.Debug().Err(err).Msg("Consent dismissal failed, continuing")
	}
}
