package server

import (
	"net/http"

	"github.com/scentlab/essentia/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Chat and retrieval
	mux.HandleFunc("/query", s.app.QueryHandler.QueryHandler)
	mux.HandleFunc("/ws/chat", s.app.WSHandler.HandleChat)

	// Knowledge base sessions
	mux.HandleFunc("/setup", s.app.SetupHandler.SetupHandler)
	mux.HandleFunc("/status/", s.app.SessionHandler.StatusHandler)
	mux.HandleFunc("/clear_cache", s.app.SessionHandler.ClearCacheHandler)
	mux.HandleFunc("/download_summaries/", s.app.SessionHandler.DownloadSummariesHandler)
	mux.HandleFunc("/download_papers/", s.app.SessionHandler.DownloadPapersHandler)

	// Scraper
	mux.HandleFunc("/api/scrape", s.app.ScrapeHandler.ScrapeHandler)

	// Diagnostics
	mux.HandleFunc("/health", s.app.HealthHandler.HealthHandler)
	mux.HandleFunc("/api/version", handlers.VersionHandler)

	return mux
}
