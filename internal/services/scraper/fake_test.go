package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/verba/internal/interfaces"
	"github.com/ternarybob/verba/internal/models"
)

// fakePage is a scripted Page for exercising the orchestrator and the
// extraction engine without Chrome.
type fakePage struct {
	tableHTML      string
	outerHTMLErr   error
	outerHTMLCalls int

	location       string
	afterSearchLoc string
	bodyText       string
	harvestCookies []models.Cookie

	navErr     error
	waitErr    map[string]error
	clickErr   map[string]error
	setCookies [][]models.Cookie

	typed     map[string]string
	clicked   []string
	navigated []string
	closed    bool
}

func newFakePage() *fakePage {
	return &fakePage{
		waitErr:  map[string]error{},
		clickErr: map[string]error{},
		typed:    map[string]string{},
	}
}

func (f *fakePage) Navigate(ctx context.Context, url string) error {
	if f.navErr != nil {
		return f.navErr
	}
	f.navigated = append(f.navigated, url)
	f.location = url
	return nil
}

func (f *fakePage) Location(ctx context.Context) (string, error) { return f.location, nil }

func (f *fakePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err, ok := f.waitErr[selector]; ok {
		return err
	}
	return nil
}

func (f *fakePage) IsVisible(ctx context.Context, selector string) (bool, error) {
	return false, nil
}

func (f *fakePage) Click(ctx context.Context, selector string) error {
	if err, ok := f.clickErr[selector]; ok {
		return err
	}
	f.clicked = append(f.clicked, selector)
	if selector == DefaultSearchSelectors().SearchButton && f.afterSearchLoc != "" {
		f.location = f.afterSearchLoc
	}
	return nil
}

func (f *fakePage) SendKeys(ctx context.Context, selector, text string) error {
	f.typed[selector] = text
	return nil
}

func (f *fakePage) Text(ctx context.Context, selector string) (string, error) {
	return "", fmt.Errorf("no node for %q", selector)
}

func (f *fakePage) BodyText(ctx context.Context) (string, error) { return f.bodyText, nil }

func (f *fakePage) OuterHTML(ctx context.Context, selector string) (string, error) {
	f.outerHTMLCalls++
	if f.outerHTMLErr != nil {
		return "", f.outerHTMLErr
	}
	return f.tableHTML, nil
}

func (f *fakePage) SetCookies(ctx context.Context, cookies []models.Cookie) error {
	f.setCookies = append(f.setCookies, cookies)
	return nil
}

func (f *fakePage) Cookies(ctx context.Context) ([]models.Cookie, error) {
	return f.harvestCookies, nil
}

func (f *fakePage) UserAgent() string { return "fake-agent" }

func (f *fakePage) Snapshot(ctx context.Context, label string) (string, error) { return "", nil }

func (f *fakePage) Close() { f.closed = true }

// fakeBrowser hands out one scripted page per NewPage call.
type fakeBrowser struct {
	pages      []*fakePage
	newPageErr error
	calls      int
}

func (f *fakeBrowser) NewPage(ctx context.Context) (interfaces.Page, error) {
	if f.newPageErr != nil {
		return nil, f.newPageErr
	}
	if f.calls >= len(f.pages) {
		return nil, fmt.Errorf("no scripted page for call %d", f.calls)
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

// fakeAuth returns a scripted login result per account.
type fakeAuth struct {
	results map[string]*interfaces.LoginResult
	errs    map[string]error
	calls   []string
}

func (f *fakeAuth) Login(ctx context.Context, page interfaces.Page, account models.Account, stored *models.SessionRecord) (*interfaces.LoginResult, error) {
	f.calls = append(f.calls, account.Key())
	if err, ok := f.errs[account.Key()]; ok {
		return nil, err
	}
	if result, ok := f.results[account.Key()]; ok {
		return result, nil
	}
	return &interfaces.LoginResult{State: interfaces.LoginStateAuthenticated, Account: account.Key()}, nil
}

// fakeStore is an in-memory SessionStore that records every call.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*models.SessionRecord
	loads   []string
	saves   []string
	deletes []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]*models.SessionRecord{}}
}

func (f *fakeStore) Load(ctx context.Context, accountID string) (*models.SessionRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, accountID)
	record, ok := f.records[accountID]
	return record, ok
}

func (f *fakeStore) Save(ctx context.Context, record *models.SessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, record.AccountID)
	f.records[record.AccountID] = record
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, accountID)
	delete(f.records, accountID)
	return nil
}

func (f *fakeStore) List(ctx context.Context) ([]*models.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*models.SessionRecord, 0, len(f.records))
	for _, record := range f.records {
		result = append(result, record)
	}
	return result, nil
}
