package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/verba/internal/common"
	"github.com/ternarybob/verba/internal/interfaces"
	"github.com/ternarybob/verba/internal/services/cache"
	"github.com/ternarybob/verba/internal/services/scheduler"
)

// StatusHandler handles HTTP requests for application status
type StatusHandler struct {
	config    *common.Config
	store     interfaces.SessionStore
	cache     *cache.Service
	scheduler *scheduler.Service
	logger    arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(config *common.Config, store interfaces.SessionStore, cacheService *cache.Service, schedulerService *scheduler.Service, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		config:    config,
		store:     store,
		cache:     cacheService,
		scheduler: schedulerService,
		logger:    logger,
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	sessionCount := 0
	if records, err := h.store.List(r.Context()); err == nil {
		sessionCount = len(records)
	} else {
		h.logger.Warn().Err(err).Msg("Failed to count sessions for status")
	}

	status := map[string]interface{}{
		"version":     common.GetVersion(),
		"environment": h.config.Environment,
		"base_url":    h.config.Scraper.BaseURL,
		"accounts":    len(h.config.Accounts.Account),
		"sessions":    sessionCount,
		"cache":       h.cache.Stats(),
	}
	if h.scheduler != nil {
		status["scheduler"] = map[string]interface{}{
			"running": h.scheduler.IsRunning(),
			"jobs":    h.scheduler.GetJobStatuses(),
		}
	}

	WriteJSON(w, http.StatusOK, status)
}
