package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/verba/internal/interfaces"
	"github.com/ternarybob/verba/internal/models"
)

// SessionSummary is the redacted view of a stored session. Cookie values
// are credentials and never leave the process.
type SessionSummary struct {
	AccountID   string    `json:"account_id"`
	CookieCount int       `json:"cookie_count"`
	UserAgent   string    `json:"user_agent"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func summarize(record *models.SessionRecord) SessionSummary {
	return SessionSummary{
		AccountID:   record.AccountID,
		CookieCount: len(record.Cookies),
		UserAgent:   record.UserAgent,
		CreatedAt:   time.Unix(record.CreatedAt, 0).UTC(),
		UpdatedAt:   time.Unix(record.UpdatedAt, 0).UTC(),
	}
}

// SessionHandler handles HTTP requests for persisted login sessions
type SessionHandler struct {
	store  interfaces.SessionStore
	logger arbor.ILogger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(store interfaces.SessionStore, logger arbor.ILogger) *SessionHandler {
	return &SessionHandler{
		store:  store,
		logger: logger,
	}
}

// ListHandler handles GET /api/sessions
func (h *SessionHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	records, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list sessions")
		WriteError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	summaries := make([]SessionSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, summarize(record))
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(summaries),
		"sessions": summaries,
	})
}

// DeleteHandler handles DELETE /api/sessions/{account_id}
func (h *SessionHandler) DeleteHandler(w http.ResponseWriter, r *http.Request, accountID string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	if accountID == "" {
		WriteError(w, http.StatusBadRequest, "Account ID is required")
		return
	}

	if err := h.store.Delete(r.Context(), accountID); err != nil {
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to delete session")
		WriteError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	h.logger.Info().Str("account_id", accountID).Msg("Session deleted")
	WriteSuccess(w, "Session deleted")
}
