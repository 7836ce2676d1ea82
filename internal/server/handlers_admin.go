package server

import (
	"net/http"
	"time"

	"github.com/untoldecay/grns/internal/api"
)

const defaultCleanupDays = 90

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.StoreInfo(r.Context())
	if err != nil {
		s.writeServiceError(w, r, internalError(ErrCodeStoreFailure, err))
		return
	}
	writeJSON(w, http.StatusOK, api.InfoResponse{
		ProjectPrefix: s.projectPrefix,
		SchemaVersion: info.SchemaVersion,
		TaskCounts:    info.TaskCounts,
		TotalTasks:    info.TotalTasks,
	})
}

// handleCleanup purges closed tasks older than the cutoff. Destructive, so
// it requires the admin token and an explicit X-Confirm header unless the
// request is a dry run.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if ae := s.requireAdmin(r); ae != nil {
		s.writeError(w, r, ae)
		return
	}

	var req api.CleanupRequest
	if ae := decodeJSON(w, r, maxBodyBytes, &req); ae != nil {
		s.writeError(w, r, ae)
		return
	}
	days := req.OlderThanDays
	if days == 0 {
		days = defaultCleanupDays
	}
	if days < 0 {
		s.writeError(w, r, badRequest("older_than_days must not be negative"))
		return
	}
	if !req.DryRun && r.Header.Get("X-Confirm") != "yes" {
		s.writeError(w, r, badRequestCode(ErrCodeMissingRequired, "destructive cleanup requires the X-Confirm: yes header"))
		return
	}

	cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	result, err := s.store.CleanupClosedTasks(r.Context(), cutoff, req.DryRun)
	if err != nil {
		s.writeServiceError(w, r, internalError(ErrCodeStoreFailure, err))
		return
	}
	writeJSON(w, http.StatusOK, api.CleanupResponse{
		TaskIDs: result.TaskIDs,
		Count:   result.Count,
		DryRun:  result.DryRun,
	})
}
