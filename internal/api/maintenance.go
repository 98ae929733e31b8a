package api

import (
	"net/http"
	"strconv"
)

// handleReconcile removes orphaned history entries and reports devices
// whose status is not backed by their newest entry. With ?repair=true a
// corrective entry is appended for each such device.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	repair := false
	if v := r.URL.Query().Get("repair"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "repair must be true or false")
			return
		}
		repair = b
	}

	report, err := s.tracker.Reconcile(r.Context(), repair)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.logger.Info("reconcile completed",
		"subject", principalFrom(r.Context()).Subject,
		"orphans_removed", report.OrphansRemoved,
		"gaps", len(report.Gaps),
		"repair", repair,
	)
	writeJSON(w, http.StatusOK, report)
}
