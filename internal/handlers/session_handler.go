// -----------------------------------------------------------------------
// Session Handler - per-session status, cache clearing and the two
// download endpoints (summaries PDF, papers zip).
// -----------------------------------------------------------------------

package handlers

import (
	"archive/zip"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/interfaces"
	"github.com/scentlab/essentia/internal/services/papers"
)

// SessionHandler serves session state and downloads
type SessionHandler struct {
	kbService  interfaces.KnowledgeBaseService
	summaryPDF interfaces.SummaryPDFService
	downloader *papers.Downloader
	logger     arbor.ILogger
}

// NewSessionHandler creates a session handler
func NewSessionHandler(kbService interfaces.KnowledgeBaseService, summaryPDF interfaces.SummaryPDFService, downloader *papers.Downloader, logger arbor.ILogger) *SessionHandler {
	return &SessionHandler{
		kbService:  kbService,
		summaryPDF: summaryPDF,
		downloader: downloader,
		logger:     logger,
	}
}

// StatusHandler handles GET /status/{session_id}
func (h *SessionHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	sessionID := PathSuffix(r, "/status")
	if sessionID == "" {
		WriteError(w, http.StatusBadRequest, "session id required")
		return
	}

	status := h.kbService.Status(sessionID)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"exists":      status.Exists,
		"paper_count": status.PaperCount,
		"chunk_count": status.ChunkCount,
		"setup_time":  status.SetupTime,
		"created_at":  status.CreatedAt,
	})
}

// ClearCacheHandler handles GET /clear_cache
func (h *SessionHandler) ClearCacheHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	evicted := h.kbService.ClearCache()
	h.logger.Info().Int("evicted", evicted).Msg("Cache clear requested")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"evicted":  evicted,
		"sessions": h.kbService.SessionCount(),
	})
}

// DownloadSummariesHandler handles GET /download_summaries/{session_id}
func (h *SessionHandler) DownloadSummariesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	sessionID := PathSuffix(r, "/download_summaries")
	docs, err := h.kbService.Documents(sessionID)
	if err != nil {
		if errors.Is(err, common.ErrSessionNotFound) {
			WriteError(w, http.StatusNotFound, "session not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sections := make([]interfaces.SummarySection, 0, len(docs))
	for _, doc := range docs {
		sections = append(sections, interfaces.SummarySection{
			Title:     doc.Title,
			Authors:   doc.Authors,
			Year:      doc.Year,
			Citations: doc.CitationCount,
			Summary:   doc.Summary,
			Abstract:  doc.Abstract,
		})
	}

	data, err := h.summaryPDF.RenderSummaries("Paper Summaries", sections)
	if err != nil {
		h.logger.Error().Err(err).Msg("Summaries PDF rendering failed")
		WriteError(w, http.StatusInternalServerError, "failed to render summaries")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="summaries.pdf"`)
	w.Write(data)
}

// DownloadPapersHandler handles GET /download_papers/{session_id}.
// PDFs are not kept after setup, so each paper is re-downloaded into
// the zip; papers that fail are skipped.
func (h *SessionHandler) DownloadPapersHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	sessionID := PathSuffix(r, "/download_papers")
	docs, err := h.kbService.Documents(sessionID)
	if err != nil {
		if errors.Is(err, common.ErrSessionNotFound) {
			WriteError(w, http.StatusNotFound, "session not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="papers.zip"`)

	zw := zip.NewWriter(w)
	defer zw.Close()

	for _, doc := range docs {
		data, err := h.downloader.Download(r.Context(), doc.URL)
		if err != nil {
			h.logger.Warn().Err(err).Str("title", doc.Title).Msg("Skipping paper in zip")
			continue
		}

		entry, err := zw.Create(safeFilename(doc.Title) + ".pdf")
		if err != nil {
			return
		}
		if _, err := entry.Write(data); err != nil {
			return
		}
	}
}

// safeFilename strips characters that are unsafe in zip entry names
func safeFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	name := strings.TrimSpace(b.String())
	if name == "" {
		name = fmt.Sprintf("paper-%d", len(title))
	}
	return name
}
