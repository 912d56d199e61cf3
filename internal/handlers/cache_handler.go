package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/verba/internal/services/cache"
)

// CacheHandler handles HTTP requests for the response cache
type CacheHandler struct {
	cache  *cache.Service
	logger arbor.ILogger
}

// NewCacheHandler creates a new CacheHandler
func NewCacheHandler(cacheService *cache.Service, logger arbor.ILogger) *CacheHandler {
	return &CacheHandler{
		cache:  cacheService,
		logger: logger,
	}
}

// StatsHandler handles GET /api/cache/stats
func (h *CacheHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, h.cache.Stats())
}

// ClearHandler handles POST /api/cache/clear
func (h *CacheHandler) ClearHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	h.cache.Clear()
	h.logger.Info().Msg("Response cache cleared")
	WriteSuccess(w, "Cache cleared")
}
