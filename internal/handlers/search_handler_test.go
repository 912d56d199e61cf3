package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/verba/internal/models"
	"github.com/ternarybob/verba/internal/services/cache"
)

// mockScraper implements interfaces.KeywordScraper for testing
type mockScraper struct {
	scrapeFunc func(ctx context.Context, req models.ScrapeRequest) (*models.KeywordResultSet, error)
	calls      int
	lastReq    models.ScrapeRequest
}

func (m *mockScraper) Scrape(ctx context.Context, req models.ScrapeRequest) (*models.KeywordResultSet, error) {
	m.calls++
	m.lastReq = req
	if m.scrapeFunc != nil {
		return m.scrapeFunc(ctx, req)
	}
	return &models.KeywordResultSet{Keyword: req.Keyword, Platform: req.Platform}, nil
}

func newTestSearchHandler(scraper *mockScraper, withCache bool) *SearchHandler {
	var cacheService *cache.Service
	if withCache {
		cacheService = cache.NewService(true, time.Minute, arbor.NewLogger())
	}
	return NewSearchHandler(scraper, cacheService, arbor.NewLogger())
}

func executeSearch(handler *SearchHandler, query string) *httptest.ResponseRecorder {
	url := "/api/search"
	if query != "" {
		url += "?" + query
	}
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	handler.SearchHandler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSearchHandler_Success(t *testing.T) {
	scraper := &mockScraper{
		scrapeFunc: func(ctx context.Context, req models.ScrapeRequest) (*models.KeywordResultSet, error) {
			return &models.KeywordResultSet{
				Account:  "acct-1",
				Keyword:  req.Keyword,
				Platform: req.Platform,
				Tab:      models.TabSuggestions,
				Keywords: []models.KeywordRecord{{Keyword: "coffee beans", SearchVolume: 9900, IsDataAvailable: true}},
			}, nil
		},
	}
	handler := newTestSearchHandler(scraper, false)

	rec := executeSearch(handler, "keyword=coffee&platform=google")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "coffee", body["keyword"])
	assert.Equal(t, "acct-1", body["account"])
}

func TestSearchHandler_MethodNotAllowed(t *testing.T) {
	handler := newTestSearchHandler(&mockScraper{}, false)

	req := httptest.NewRequest(http.MethodPost, "/api/search?keyword=x&platform=google", nil)
	rec := httptest.NewRecorder()
	handler.SearchHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSearchHandler_AbsentMaxVolumeMeansUnlimited(t *testing.T) {
	scraper := &mockScraper{}
	handler := newTestSearchHandler(scraper, false)

	rec := executeSearch(handler, "keyword=coffee&platform=google&min_volume=100")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, scraper.lastReq.MinVolume)
	assert.Equal(t, models.UnlimitedVolume, scraper.lastReq.MaxVolume)
}

func TestSearchHandler_ExplicitZeroMaxVolume(t *testing.T) {
	scraper := &mockScraper{}
	handler := newTestSearchHandler(scraper, false)

	rec := executeSearch(handler, "keyword=coffee&platform=google&max_volume=0")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, scraper.lastReq.MaxVolume)
}

func TestSearchHandler_MalformedVolume(t *testing.T) {
	scraper := &mockScraper{}
	handler := newTestSearchHandler(scraper, false)

	rec := executeSearch(handler, "keyword=coffee&platform=google&min_volume=abc")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, scraper.calls)
}

func TestSearchHandler_InvalidInputMapsTo400(t *testing.T) {
	scraper := &mockScraper{
		scrapeFunc: func(ctx context.Context, req models.ScrapeRequest) (*models.KeywordResultSet, error) {
			return nil, models.NewInvalidInputError("unsupported platform: bing")
		},
	}
	handler := newTestSearchHandler(scraper, false)

	rec := executeSearch(handler, "keyword=coffee&platform=bing")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["error"], "unsupported platform")
}

func TestSearchHandler_NoAccountsMapsTo500(t *testing.T) {
	scraper := &mockScraper{
		scrapeFunc: func(ctx context.Context, req models.ScrapeRequest) (*models.KeywordResultSet, error) {
			return nil, models.NewNoAccountsError()
		},
	}
	handler := newTestSearchHandler(scraper, false)

	rec := executeSearch(handler, "keyword=coffee&platform=google")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSearchHandler_ChallengeDominatesExhaustion(t *testing.T) {
	scraper := &mockScraper{
		scrapeFunc: func(ctx context.Context, req models.ScrapeRequest) (*models.KeywordResultSet, error) {
			return nil, &models.ExhaustedError{Attempts: []models.AttemptFailure{
				{Account: "acct-1", Kind: models.ErrKindRejected, Reason: "bad password"},
				{Account: "acct-2", Kind: models.ErrKindChallenge, Reason: "captcha"},
			}}
		},
	}
	handler := newTestSearchHandler(scraper, false)

	rec := executeSearch(handler, "keyword=coffee&platform=google")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, string(models.ErrKindChallenge), body["kind"])
	assert.Len(t, body["attempts"], 2)
}

func TestSearchHandler_AllRejectedMapsTo401(t *testing.T) {
	scraper := &mockScraper{
		scrapeFunc: func(ctx context.Context, req models.ScrapeRequest) (*models.KeywordResultSet, error) {
			return nil, &models.ExhaustedError{Attempts: []models.AttemptFailure{
				{Account: "acct-1", Kind: models.ErrKindRejected, Reason: "bad password"},
				{Account: "acct-2", Kind: models.ErrKindRejected, Reason: "bad password"},
			}}
		},
	}
	handler := newTestSearchHandler(scraper, false)

	rec := executeSearch(handler, "keyword=coffee&platform=google")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSearchHandler_MixedFailuresMapTo500(t *testing.T) {
	scraper := &mockScraper{
		scrapeFunc: func(ctx context.Context, req models.ScrapeRequest) (*models.KeywordResultSet, error) {
			return nil, &models.ExhaustedError{Attempts: []models.AttemptFailure{
				{Account: "acct-1", Kind: models.ErrKindRejected, Reason: "bad password"},
				{Account: "acct-2", Kind: models.ErrKindExtraction, Reason: "table never appeared"},
			}}
		},
	}
	handler := newTestSearchHandler(scraper, false)

	rec := executeSearch(handler, "keyword=coffee&platform=google")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSearchHandler_ResponseCarriesStats(t *testing.T) {
	scraper := &mockScraper{
		scrapeFunc: func(ctx context.Context, req models.ScrapeRequest) (*models.KeywordResultSet, error) {
			return &models.KeywordResultSet{
				Keyword:  req.Keyword,
				Platform: req.Platform,
				Keywords: []models.KeywordRecord{
					{Keyword: "coffee beans", SearchVolume: 9900, IsDataAvailable: true},
					{Keyword: "coffee grinder", SearchVolume: 1200, IsDataAvailable: true},
					{Keyword: "coffee maker", SearchVolumeDisplay: models.VolumeUnavailable},
				},
			}, nil
		},
	}
	handler := newTestSearchHandler(scraper, true)

	rec := executeSearch(handler, "keyword=coffee&platform=google")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	summary, ok := body["stats"].(map[string]interface{})
	require.True(t, ok, "response must carry a stats block")
	assert.Equal(t, float64(3), summary["total_keywords"])
	assert.Equal(t, float64(2), summary["available_keywords"])
	assert.Equal(t, float64(1), summary["redacted_keywords"])
	assert.Equal(t, float64(11100), summary["total_volume"])
	assert.Equal(t, float64(9900), summary["max_volume"])

	top, ok := body["top_keywords"].([]interface{})
	require.True(t, ok)
	require.Len(t, top, 2)
	first, ok := top[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "coffee beans", first["keyword"])

	// The cached copy of the same request carries the stats block too.
	cached := executeSearch(handler, "keyword=coffee&platform=google")
	require.Equal(t, http.StatusOK, cached.Code)
	require.Equal(t, 1, scraper.calls)
	cachedBody := decodeBody(t, cached)
	assert.Contains(t, cachedBody, "stats")
	assert.Contains(t, cachedBody, "top_keywords")
}

func TestSearchHandler_CacheHitSkipsScraper(t *testing.T) {
	scraper := &mockScraper{}
	handler := newTestSearchHandler(scraper, true)

	first := executeSearch(handler, "keyword=coffee&platform=google")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, 1, scraper.calls)

	second := executeSearch(handler, "keyword=coffee&platform=google")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, scraper.calls)
}

func TestSearchHandler_ErrorsAreNotCached(t *testing.T) {
	scraper := &mockScraper{
		scrapeFunc: func(ctx context.Context, req models.ScrapeRequest) (*models.KeywordResultSet, error) {
			return nil, models.NewNoAccountsError()
		},
	}
	handler := newTestSearchHandler(scraper, true)

	executeSearch(handler, "keyword=coffee&platform=google")
	executeSearch(handler, "keyword=coffee&platform=google")

	assert.Equal(t, 2, scraper.calls)
}
