package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/verba/internal/interfaces"
	"github.com/ternarybob/verba/internal/models"
	"github.com/ternarybob/verba/internal/services/cache"
	"github.com/ternarybob/verba/internal/services/stats"
)

// topKeywordCount is how many highest-volume records the response surfaces
// alongside the full list.
const topKeywordCount = 5

// searchResponse is the search payload: the result set plus aggregate
// figures computed over its records.
type searchResponse struct {
	*models.KeywordResultSet
	Stats       stats.Summary          `json:"stats"`
	TopKeywords []models.KeywordRecord `json:"top_keywords"`
}

func newSearchResponse(result *models.KeywordResultSet) searchResponse {
	return searchResponse{
		KeywordResultSet: result,
		Stats:            stats.Summarize(result.Keywords),
		TopKeywords:      stats.TopByVolume(result.Keywords, topKeywordCount),
	}
}

// SearchHandler handles keyword research HTTP requests
type SearchHandler struct {
	scraper interfaces.KeywordScraper
	cache   *cache.Service
	logger  arbor.ILogger
}

// NewSearchHandler creates a new search handler with dependencies
func NewSearchHandler(scraper interfaces.KeywordScraper, cacheService *cache.Service, logger arbor.ILogger) *SearchHandler {
	return &SearchHandler{
		scraper: scraper,
		cache:   cacheService,
		logger:  logger,
	}
}

// SearchHandler handles GET /api/search?keyword=...&platform=... requests
func (h *SearchHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	req, err := parseSearchRequest(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info().
		Str("keyword", req.Keyword).
		Str("platform", string(req.Platform)).
		Str("tab", string(req.Tab)).
		Msg("Search request received")

	if h.cache != nil {
		if result, ok := h.cache.Get(req); ok {
			WriteJSON(w, http.StatusOK, newSearchResponse(result))
			return
		}
	}

	result, err := h.scraper.Scrape(r.Context(), req)
	if err != nil {
		h.writeScrapeError(w, req, err)
		return
	}

	if h.cache != nil {
		h.cache.Put(req, result)
	}

	WriteJSON(w, http.StatusOK, newSearchResponse(result))
}

// parseSearchRequest builds a ScrapeRequest from query parameters. An absent
// max_volume means unlimited; an explicit "0" is a real upper bound.
func parseSearchRequest(r *http.Request) (models.ScrapeRequest, error) {
	query := r.URL.Query()

	req := models.ScrapeRequest{
		Keyword:   query.Get("keyword"),
		Platform:  models.Platform(query.Get("platform")),
		Tab:       models.ResultTab(query.Get("tab")),
		MaxVolume: models.UnlimitedVolume,
	}

	if raw := query.Get("min_volume"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return req, errors.New("min_volume must be an integer")
		}
		req.MinVolume = parsed
	}

	if raw := query.Get("max_volume"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return req, errors.New("max_volume must be an integer")
		}
		req.MaxVolume = parsed
	}

	return req, nil
}

// writeScrapeError maps scrape failures to HTTP status codes. When every
// account was exhausted, the attempt breakdown rides along in the body.
func (h *SearchHandler) writeScrapeError(w http.ResponseWriter, req models.ScrapeRequest, err error) {
	var exhausted *models.ExhaustedError
	if errors.As(err, &exhausted) {
		status := http.StatusInternalServerError
		switch exhausted.DominantKind() {
		case models.ErrKindChallenge:
			status = http.StatusServiceUnavailable
		case models.ErrKindRejected:
			status = http.StatusUnauthorized
		}

		h.logger.Warn().
			Str("keyword", req.Keyword).
			Str("kind", string(exhausted.DominantKind())).
			Int("attempts", len(exhausted.Attempts)).
			Msg("All accounts exhausted")

		WriteJSON(w, status, map[string]interface{}{
			"status":   "error",
			"error":    exhausted.Error(),
			"kind":     string(exhausted.DominantKind()),
			"attempts": exhausted.Attempts,
		})
		return
	}

	status := http.StatusInternalServerError
	switch models.KindOf(err) {
	case models.ErrKindInvalidInput:
		status = http.StatusBadRequest
	case models.ErrKindNoAccounts:
		status = http.StatusInternalServerError
	}

	if status == http.StatusBadRequest {
		WriteError(w, status, err.Error())
		return
	}

	h.logger.Error().
		Err(err).
		Str("keyword", req.Keyword).
		Msg("Scrape failed")
	WriteError(w, status, err.Error())
}
