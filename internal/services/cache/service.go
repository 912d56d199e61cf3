// Package cache provides an in-memory TTL cache for scrape responses,
// keyed by normalized request parameters. A scrape costs a full browser
// round trip, so identical requests inside the freshness window are served
// from memory.
package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/verba/internal/models"
)

// Service is the response cache. Safe for concurrent use.
type Service struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	enabled bool
	logger  arbor.ILogger

	hits   int64
	misses int64
}

type entry struct {
	result    *models.KeywordResultSet
	expiresAt time.Time
}

// NewService creates a response cache.
func NewService(enabled bool, ttl time.Duration, logger arbor.ILogger) *Service {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{
		entries: map[string]entry{},
		ttl:     ttl,
		enabled: enabled,
		logger:  logger,
	}
}

// Key normalizes a request into a cache key. Keyword case and surrounding
// whitespace never change the upstream answer, so they never miss the cache.
func Key(req models.ScrapeRequest) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d",
		strings.ToLower(strings.TrimSpace(req.Keyword)),
		req.Platform,
		req.Tab,
		req.MinVolume,
		req.MaxVolume,
	)
}

// Get returns a cached result when present and fresh.
func (s *Service) Get(req models.ScrapeRequest) (*models.KeywordResultSet, bool) {
	if !s.enabled {
		return nil, false
	}

	key := Key(req)

	s.mu.RLock()
	cached, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || time.Now().After(cached.expiresAt) {
		s.mu.Lock()
		s.misses++
		s.mu.Unlock()
		return nil, false
	}

	s.mu.Lock()
	s.hits++
	s.mu.Unlock()

	s.logger.Debug().Str("key", key).Msg("Cache hit")
	return cached.result, true
}

// Put stores a result for the request. Degraded results are cached too:
// the upstream would blur them again for the same session state anyway.
func (s *Service) Put(req models.ScrapeRequest, result *models.KeywordResultSet) {
	if !s.enabled || result == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[Key(req)] = entry{
		result:    result,
		expiresAt: time.Now().Add(s.ttl),
	}
}

// Sweep drops expired entries. Called periodically by the scheduler.
func (s *Service) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, cached := range s.entries {
		if now.After(cached.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug().Int("removed", removed).Msg("Swept expired cache entries")
	}
	return removed
}

// Clear drops every entry.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[string]entry{}
}

// Stats reports cache effectiveness counters.
func (s *Service) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"enabled": s.enabled,
		"entries": len(s.entries),
		"hits":    s.hits,
		"misses":  s.misses,
		"ttl":     s.ttl.String(),
	}
}
