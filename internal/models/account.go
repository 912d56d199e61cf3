package models

// Account holds the credentials for one upstream account. Accounts are
// supplied by configuration and immutable for the lifetime of a request.
type Account struct {
	ID       string `toml:"id" json:"id"`
	Email    string `toml:"email" json:"email"`
	Password string `toml:"password" json:"-"`
}

// Key returns the session-store key for this account. Falls back to the
// email when no explicit ID is configured.
func (a Account) Key() string {
	if a.ID != "" {
		return a.ID
	}
	return a.Email
}
