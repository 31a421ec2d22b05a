package handlers

import (
	"net/http"

	"github.com/scentlab/essentia/internal/common"
)

// VersionHandler handles GET /api/version
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"version": common.GetVersion(),
		"build":   common.GetFullVersion(),
	})
}
