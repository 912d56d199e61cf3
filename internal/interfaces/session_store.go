package interfaces

import (
	"context"

	"github.com/ternarybob/verba/internal/models"
)

// SessionStore persists one session record per account. Load must never
// fail the caller: a missing or corrupt record reads as absent.
type SessionStore interface {
	// Load returns the stored record for an account, or (nil, false) when
	// no usable record exists.
	Load(ctx context.Context, accountID string) (*models.SessionRecord, bool)

	// Save overwrites the record for an account (last-write-wins).
	Save(ctx context.Context, record *models.SessionRecord) error

	// Delete removes the record for an account. Deleting an absent record
	// is not an error.
	Delete(ctx context.Context, accountID string) error

	// List returns every stored session record.
	List(ctx context.Context) ([]*models.SessionRecord, error)
}
