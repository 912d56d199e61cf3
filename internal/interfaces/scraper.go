package interfaces

import (
	"context"

	"github.com/ternarybob/verba/internal/models"
)

// KeywordScraper is the orchestrator contract consumed by the HTTP layer:
// strictly either a result set or an error, never both.
type KeywordScraper interface {
	Scrape(ctx context.Context, req models.ScrapeRequest) (*models.KeywordResultSet, error)
}

// LoginState is a terminal or intermediate state of the login flow.
type LoginState string

const (
	LoginStateUnknown              LoginState = "unknown"
	LoginStateChecking             LoginState = "checking_auth_state"
	LoginStateAlreadyAuthenticated LoginState = "already_authenticated"
	LoginStateSubmitting           LoginState = "submitting_credentials"
	LoginStateAuthenticated        LoginState = "authenticated"
	LoginStateRejected             LoginState = "rejected"
	LoginStateChallenged           LoginState = "challenged"
	LoginStateTimedOut             LoginState = "timed_out"
)

// Authenticated reports whether the state represents a usable session.
func (s LoginState) Authenticated() bool {
	return s == LoginStateAuthenticated || s == LoginStateAlreadyAuthenticated
}

// LoginResult is the terminal outcome of driving the login state machine
// for one account on one page.
type LoginResult struct {
	State     LoginState
	Account   string
	Message   string
	Cookies   []models.Cookie
	UserAgent string
}

// Authenticator drives a page to a terminal login state for an account.
type Authenticator interface {
	Login(ctx context.Context, page Page, account models.Account, stored *models.SessionRecord) (*LoginResult, error)
}
