package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gripid/tracker-core/internal/audit"
)

// handleGetHistory returns every audit entry recorded under a serial,
// newest first. Unknown serials yield an empty list.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.tracker.GetHistory(r.Context(), chi.URLParam(r, "serial"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleActivity returns recent audit entries across all devices.
//
// Query parameters:
//   - device_id: entries of one device
//   - status: exact status match
//   - limit, offset: paging (limit default 50, max 200)
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeBadRequest(w, "limit must be a number")
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeBadRequest(w, "offset must be a number")
		return
	}

	q := r.URL.Query()
	result, err := s.tracker.Activity(r.Context(), audit.Filter{
		DeviceID: q.Get("device_id"),
		Status:   q.Get("status"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
