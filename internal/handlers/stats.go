package handlers

import (
	"net/http"

	"github.com/maxldruck/printcalc/internal/services"
)

// Stats returns revenue and counts across all ledgers.
func Stats(projects *services.ProjectService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := projects.Stats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to compute stats")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
