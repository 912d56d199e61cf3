package models

// Cookie represents a single browser cookie captured after a successful
// login. The shape mirrors what the CDP network domain reports so records
// survive a round trip through storage and back into a fresh browser.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
	SameSite string  `json:"sameSite"`
}

// SessionRecord is the persisted session for one account: the cookies from
// the last successful authenticated scrape plus the user-agent string that
// produced them. Written only after a successful, non-degraded fetch and
// deleted whenever an attempt for that account fails.
type SessionRecord struct {
	AccountID string   `json:"account_id"`
	Cookies   []Cookie `json:"cookies"`
	UserAgent string   `json:"user_agent"`
	CreatedAt int64    `json:"created_at"`
	UpdatedAt int64    `json:"updated_at"`
}
