package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/verba/internal/common"
	"github.com/ternarybob/verba/internal/interfaces"
	"github.com/ternarybob/verba/internal/models"
)

func newTestConfig(accounts ...models.Account) *common.Config {
	config := common.NewDefaultConfig()
	config.Browser.WaitTimeout = 300 * time.Millisecond
	config.Browser.RequestTimeout = 5 * time.Second
	config.Scraper.AttemptDelay = time.Millisecond
	config.Scraper.TableBackoff = 5 * time.Millisecond
	config.Accounts.Account = accounts
	return config
}

func goodSearchPage() *fakePage {
	page := newFakePage()
	page.tableHTML = fullTableHTML
	page.afterSearchLoc = "https://keywordtool.io/search/keywords/google"
	page.bodyText = "Total Search Volume: 21,190\nAverage Trend: +3.5%"
	page.harvestCookies = []models.Cookie{{Name: "sid", Value: "fresh"}}
	return page
}

func brokenSearchPage() *fakePage {
	page := newFakePage()
	page.waitErr[DefaultSearchSelectors().SearchInput] = errors.New("search input never appeared")
	return page
}

func testRequest() models.ScrapeRequest {
	return models.ScrapeRequest{
		Keyword:   "golang",
		Platform:  models.PlatformGoogle,
		Tab:       models.TabSuggestions,
		MinVolume: 0,
		MaxVolume: models.UnlimitedVolume,
	}
}

func account(id string) models.Account {
	return models.Account{ID: id, Email: id + "@example.com", Password: "pw"}
}

func newOrchestrator(config *common.Config, store interfaces.SessionStore, browser interfaces.Browser, auth interfaces.Authenticator) *Orchestrator {
	return NewOrchestrator(config, store, browser, auth, arbor.NewLogger())
}

func TestScrape_Success(t *testing.T) {
	config := newTestConfig(account("acct-1"))
	store := newFakeStore()
	page := goodSearchPage()
	browser := &fakeBrowser{pages: []*fakePage{page}}
	auth := &fakeAuth{}

	result, err := newOrchestrator(config, store, browser, auth).Scrape(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "acct-1", result.Account)
	assert.Equal(t, 5, result.TotalKeywordsFound)
	assert.Equal(t, len(result.Keywords), result.FilteredCount)
	assert.Equal(t, "21,190", result.TotalSearchVolume)
	assert.Equal(t, "+3.5%", result.AverageTrend)
	assert.False(t, result.Degraded)
	assert.Equal(t, "golang", page.typed[DefaultSearchSelectors().SearchInput])
	assert.True(t, page.closed, "browser context must be torn down after the attempt")
	assert.Equal(t, []string{"acct-1"}, store.saves, "non-degraded authenticated result must persist the session")
}

func TestScrape_Failover(t *testing.T) {
	config := newTestConfig(account("acct-1"), account("acct-2"), account("acct-3"))
	store := newFakeStore()
	pages := []*fakePage{brokenSearchPage(), brokenSearchPage(), goodSearchPage()}
	browser := &fakeBrowser{pages: pages}
	auth := &fakeAuth{results: map[string]*interfaces.LoginResult{
		"acct-1": {State: interfaces.LoginStateRejected, Message: "bad credentials"},
		"acct-2": {State: interfaces.LoginStateRejected, Message: "bad credentials"},
	}}

	result, err := newOrchestrator(config, store, browser, auth).Scrape(context.Background(), testRequest())
	require.NoError(t, err, "aggregate failures must never surface once an account succeeds")

	assert.Equal(t, "acct-3", result.Account)
	assert.Equal(t, 3, browser.calls)
	for _, page := range pages {
		assert.True(t, page.closed)
	}
	assert.Contains(t, store.deletes, "acct-1")
	assert.Contains(t, store.deletes, "acct-2")
}

func TestScrape_FirstSuccessStopsIteration(t *testing.T) {
	config := newTestConfig(account("acct-1"), account("acct-2"))
	store := newFakeStore()
	browser := &fakeBrowser{pages: []*fakePage{goodSearchPage()}}
	auth := &fakeAuth{}

	result, err := newOrchestrator(config, store, browser, auth).Scrape(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "acct-1", result.Account)
	assert.Equal(t, 1, browser.calls, "no further accounts may be tried after a success")
}

func TestScrape_AllAccountsExhausted(t *testing.T) {
	config := newTestConfig(account("acct-1"), account("acct-2"), account("acct-3"))
	store := newFakeStore()
	browser := &fakeBrowser{pages: []*fakePage{brokenSearchPage(), brokenSearchPage(), brokenSearchPage()}}
	auth := &fakeAuth{results: map[string]*interfaces.LoginResult{
		"acct-1": {State: interfaces.LoginStateRejected, Message: "bad credentials"},
		"acct-2": {State: interfaces.LoginStateChallenged, Message: "captcha"},
		"acct-3": {State: interfaces.LoginStateAuthenticated},
	}}

	result, err := newOrchestrator(config, store, browser, auth).Scrape(context.Background(), testRequest())
	require.Error(t, err)
	assert.Nil(t, result)

	var exhausted *models.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Attempts, 3)
	assert.Equal(t, "acct-1", exhausted.Attempts[0].Account)
	assert.Equal(t, models.ErrKindRejected, exhausted.Attempts[0].Kind)
	assert.Equal(t, models.ErrKindChallenge, exhausted.Attempts[1].Kind)
	assert.Equal(t, models.ErrKindExtraction, exhausted.Attempts[2].Kind)

	// Every failed account's session must be invalidated.
	for _, id := range []string{"acct-1", "acct-2", "acct-3"} {
		assert.Contains(t, store.deletes, id)
	}
}

func TestScrape_InvalidPlatform(t *testing.T) {
	config := newTestConfig(account("acct-1"))
	store := newFakeStore()
	browser := &fakeBrowser{}
	auth := &fakeAuth{}

	req := testRequest()
	req.Platform = "bing"

	_, err := newOrchestrator(config, store, browser, auth).Scrape(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, models.ErrKindInvalidInput, models.KindOf(err))

	// Neither the store nor the browser may be touched for invalid input.
	assert.Zero(t, browser.calls)
	assert.Empty(t, store.loads)
}

func TestScrape_EmptyKeyword(t *testing.T) {
	config := newTestConfig(account("acct-1"))
	req := testRequest()
	req.Keyword = ""

	_, err := newOrchestrator(config, newFakeStore(), &fakeBrowser{}, &fakeAuth{}).Scrape(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, models.ErrKindInvalidInput, models.KindOf(err))
}

func TestScrape_InvertedVolumeBounds(t *testing.T) {
	config := newTestConfig(account("acct-1"))
	req := testRequest()
	req.MinVolume = 1000
	req.MaxVolume = 10

	_, err := newOrchestrator(config, newFakeStore(), &fakeBrowser{}, &fakeAuth{}).Scrape(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, models.ErrKindInvalidInput, models.KindOf(err))
}

func TestScrape_NoAccountsConfigured(t *testing.T) {
	config := newTestConfig()

	_, err := newOrchestrator(config, newFakeStore(), &fakeBrowser{}, &fakeAuth{}).Scrape(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, models.ErrKindNoAccounts, models.KindOf(err))
}

func TestScrape_AccountsWithSessionsGoFirst(t *testing.T) {
	config := newTestConfig(account("acct-1"), account("acct-2"), account("acct-3"))
	store := newFakeStore()
	require.NoError(t, store.Save(context.Background(), &models.SessionRecord{
		AccountID: "acct-2",
		UserAgent: "ua",
		Cookies:   []models.Cookie{{Name: "sid", Value: "v"}},
	}))
	store.saves = nil

	browser := &fakeBrowser{pages: []*fakePage{goodSearchPage()}}
	auth := &fakeAuth{}

	result, err := newOrchestrator(config, store, browser, auth).Scrape(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "acct-2", result.Account)
	assert.Equal(t, []string{"acct-2"}, auth.calls)
}

func TestScrape_StoredCookiesInjectedBeforeNavigation(t *testing.T) {
	config := newTestConfig(account("acct-1"))
	store := newFakeStore()
	cookies := []models.Cookie{{Name: "sid", Value: "stored", Domain: ".keywordtool.io"}}
	require.NoError(t, store.Save(context.Background(), &models.SessionRecord{
		AccountID: "acct-1",
		UserAgent: "ua",
		Cookies:   cookies,
	}))

	page := goodSearchPage()
	browser := &fakeBrowser{pages: []*fakePage{page}}

	_, err := newOrchestrator(config, store, browser, &fakeAuth{}).Scrape(context.Background(), testRequest())
	require.NoError(t, err)

	require.Len(t, page.setCookies, 1)
	assert.Equal(t, cookies, page.setCookies[0])
}

func TestScrape_DegradedResultDoesNotPersistSession(t *testing.T) {
	config := newTestConfig(account("acct-1"))
	store := newFakeStore()

	page := goodSearchPage()
	page.tableHTML = allBlurredTableHTML
	browser := &fakeBrowser{pages: []*fakePage{page}}

	result, err := newOrchestrator(config, store, browser, &fakeAuth{}).Scrape(context.Background(), testRequest())
	require.NoError(t, err, "a degraded result is still a success")

	assert.True(t, result.Degraded)
	assert.Len(t, result.Keywords, 2)
	assert.Empty(t, store.saves, "degraded results must never persist the session")
}

func TestScrape_GuestFallbackReturnsBlurredData(t *testing.T) {
	config := newTestConfig(account("acct-1"))
	store := newFakeStore()

	page := goodSearchPage()
	page.tableHTML = allBlurredTableHTML
	browser := &fakeBrowser{pages: []*fakePage{page}}
	auth := &fakeAuth{results: map[string]*interfaces.LoginResult{
		"acct-1": {State: interfaces.LoginStateRejected, Message: "bad credentials"},
	}}

	result, err := newOrchestrator(config, store, browser, auth).Scrape(context.Background(), testRequest())
	require.NoError(t, err, "a rejected login must fall back to guest scraping")

	assert.True(t, result.Degraded)
	assert.Len(t, result.Keywords, 2)
	assert.Contains(t, store.deletes, "acct-1", "a failed login always invalidates the cached session")
	assert.Empty(t, store.saves)
}

func TestScrape_VolumeFilter(t *testing.T) {
	config := newTestConfig(account("acct-1"))
	store := newFakeStore()
	browser := &fakeBrowser{pages: []*fakePage{goodSearchPage()}}

	req := testRequest()
	req.MinVolume = 500
	req.MaxVolume = 15000

	result, err := newOrchestrator(config, store, browser, &fakeAuth{}).Scrape(context.Background(), req)
	require.NoError(t, err)

	// Rows: 12100, 0 (blurred), 0 (blurred), 0 (blurred), 590. In range: 12100 and 590.
	assert.Equal(t, 5, result.TotalKeywordsFound)
	assert.Equal(t, 2, result.FilteredCount)
	require.Len(t, result.Keywords, 2)
	for _, record := range result.Keywords {
		assert.GreaterOrEqual(t, record.SearchVolume, 500)
		assert.LessOrEqual(t, record.SearchVolume, 15000)
	}
}

func TestScrape_TabSwitch(t *testing.T) {
	config := newTestConfig(account("acct-1"))
	page := goodSearchPage()
	browser := &fakeBrowser{pages: []*fakePage{page}}

	req := testRequest()
	req.Tab = models.TabQuestions

	result, err := newOrchestrator(config, newFakeStore(), browser, &fakeAuth{}).Scrape(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, models.TabQuestions, result.Tab)
	assert.Contains(t, page.clicked, "a[data-category='questions']")
}
