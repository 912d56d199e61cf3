package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/verba/internal/interfaces"
	"github.com/ternarybob/verba/internal/models"
)

// SessionStorage implements the SessionStore interface for Badger. One
// record exists per account at any time; Save upserts unconditionally.
type SessionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSessionStorage creates a new SessionStorage instance
func NewSessionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SessionStore {
	return &SessionStorage{
		db:     db,
		logger: logger,
	}
}

// Load returns the stored session for an account. A missing or unreadable
// record is reported as absent, never as an error: the attempt simply
// starts unauthenticated.
func (s *SessionStorage) Load(ctx context.Context, accountID string) (*models.SessionRecord, bool) {
	if accountID == "" {
		return nil, false
	}

	var record models.SessionRecord
	if err := s.db.Store().Get(accountID, &record); err != nil {
		if err != badgerhold.ErrNotFound {
			s.logger.Warn().Err(err).Str("account", accountID).Msg("Failed to read session record, treating as absent")
		}
		return nil, false
	}

	if len(record.Cookies) == 0 || record.UserAgent == "" {
		s.logger.Warn().Str("account", accountID).Msg("Stored session record is incomplete, treating as absent")
		return nil, false
	}

	return &record, true
}

// Save overwrites the session record for an account (last-write-wins).
func (s *SessionStorage) Save(ctx context.Context, record *models.SessionRecord) error {
	if record.AccountID == "" {
		return fmt.Errorf("session record account ID is required")
	}

	now := time.Now().Unix()
	if record.CreatedAt == 0 {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	if err := s.db.Store().Upsert(record.AccountID, record); err != nil {
		return fmt.Errorf("failed to store session record: %w", err)
	}

	s.logger.Debug().
		Str("account", record.AccountID).
		Int("cookies", len(record.Cookies)).
		Msg("Session record saved")
	return nil
}

// Delete removes the session record for an account. Already-deleted is
// success: the next attempt must start unauthenticated either way.
func (s *SessionStorage) Delete(ctx context.Context, accountID string) error {
	if err := s.db.Store().Delete(accountID, &models.SessionRecord{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete session record: %w", err)
	}

	s.logger.Debug().Str("account", accountID).Msg("Session record deleted")
	return nil
}

// List returns every stored session record.
func (s *SessionStorage) List(ctx context.Context) ([]*models.SessionRecord, error) {
	var records []models.SessionRecord
	if err := s.db.Store().Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to list session records: %w", err)
	}

	result := make([]*models.SessionRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}
