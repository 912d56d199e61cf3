package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Keyword research
	mux.HandleFunc("/api/search", s.app.SearchHandler.SearchHandler)

	// API routes - Persisted login sessions
	mux.HandleFunc("/api/sessions", s.app.SessionHandler.ListHandler)
	mux.HandleFunc("/api/sessions/", s.handleSessionRoutes) // DELETE /{account_id}

	// API routes - Response cache
	mux.HandleFunc("/api/cache/stats", s.app.CacheHandler.StatsHandler)
	mux.HandleFunc("/api/cache/clear", s.app.CacheHandler.ClearHandler)

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// Everything else is a 404
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.app.APIHandler.NotFoundHandler(w, r)
	})

	return mux
}

// handleSessionRoutes routes /api/sessions/{account_id} requests
func (s *Server) handleSessionRoutes(w http.ResponseWriter, r *http.Request) {
	accountID := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if accountID == "" || strings.Contains(accountID, "/") {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	s.app.SessionHandler.DeleteHandler(w, r, accountID)
}
