package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies scrape failures so the HTTP boundary can map them
// to statuses without string matching.
type ErrorKind string

const (
	// ErrKindInvalidInput - bad platform/tab/keyword. Fatal, no account attempts.
	ErrKindInvalidInput ErrorKind = "invalid_input"
	// ErrKindNoAccounts - empty account pool. Fatal configuration error.
	ErrKindNoAccounts ErrorKind = "no_accounts_configured"
	// ErrKindChallenge - OTP/CAPTCHA/rate-limit signal during login. Not
	// retried for that account this run; other accounts are still tried.
	ErrKindChallenge ErrorKind = "account_challenge"
	// ErrKindRejected - bad credentials or login page rejection.
	ErrKindRejected ErrorKind = "account_rejected"
	// ErrKindExtraction - navigation/timeout/DOM failure during scraping.
	ErrKindExtraction ErrorKind = "account_extraction"
	// ErrKindExhausted - every account failed. Terminal aggregate.
	ErrKindExhausted ErrorKind = "all_accounts_exhausted"
)

// ScrapeError is a classified failure, optionally attributed to one account.
type ScrapeError struct {
	Kind    ErrorKind
	Account string
	Message string
	Err     error
}

func (e *ScrapeError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Account != "" {
		b.WriteString(" [" + e.Account + "]")
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewInvalidInputError reports a request that fails validation before any
// account is attempted.
func NewInvalidInputError(format string, args ...interface{}) *ScrapeError {
	return &ScrapeError{Kind: ErrKindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// NewNoAccountsError reports an empty configured account pool.
func NewNoAccountsError() *ScrapeError {
	return &ScrapeError{Kind: ErrKindNoAccounts, Message: "no scraper accounts configured"}
}

// NewChallengeError reports a verification challenge blocking login.
func NewChallengeError(account, message string) *ScrapeError {
	return &ScrapeError{Kind: ErrKindChallenge, Account: account, Message: message}
}

// NewRejectedError reports a login rejection for an account.
func NewRejectedError(account, message string) *ScrapeError {
	return &ScrapeError{Kind: ErrKindRejected, Account: account, Message: message}
}

// NewExtractionError reports a navigation or DOM failure during scraping.
func NewExtractionError(account string, err error) *ScrapeError {
	return &ScrapeError{Kind: ErrKindExtraction, Account: account, Err: err}
}

// AttemptFailure records why one account's attempt failed.
type AttemptFailure struct {
	Account string    `json:"account"`
	Kind    ErrorKind `json:"kind"`
	Reason  string    `json:"reason"`
}

// ExhaustedError aggregates every per-account failure once the whole pool
// has been tried without a success.
type ExhaustedError struct {
	Attempts []AttemptFailure
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s (%s): %s", a.Account, a.Kind, a.Reason))
	}
	return fmt.Sprintf("all %d accounts exhausted: %s", len(e.Attempts), strings.Join(parts, "; "))
}

// DominantKind reduces the aggregate to the kind the boundary should map.
// A challenge anywhere means the upstream is actively blocking automation,
// so it wins over rejections; an aggregate of pure rejections is an
// authentication problem.
func (e *ExhaustedError) DominantKind() ErrorKind {
	if len(e.Attempts) == 0 {
		return ErrKindExhausted
	}
	allRejected := true
	for _, a := range e.Attempts {
		if a.Kind == ErrKindChallenge {
			return ErrKindChallenge
		}
		if a.Kind != ErrKindRejected {
			allRejected = false
		}
	}
	if allRejected {
		return ErrKindRejected
	}
	return ErrKindExhausted
}

// KindOf extracts the ErrorKind from any error in a wrap chain. Unclassified
// errors report ErrKindExtraction so callers always get a usable kind.
func KindOf(err error) ErrorKind {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Kind
	}
	var ee *ExhaustedError
	if errors.As(err, &ee) {
		return ErrKindExhausted
	}
	return ErrKindExtraction
}
