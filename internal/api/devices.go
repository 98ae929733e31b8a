package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gripid/tracker-core/internal/device"
	"github.com/gripid/tracker-core/internal/tracker"
)

// createDeviceRequest is the body of POST /devices.
type createDeviceRequest struct {
	Serial string `json:"sn_no"`
	IMEI1  string `json:"imei_1"`
	IMEI2  string `json:"imei_2"`
	Status string `json:"status"`
	Note   string `json:"note"`
}

// updateDeviceRequest is the body of PUT /devices/{id}. Omitted
// identifiers are left unchanged.
type updateDeviceRequest struct {
	Status string  `json:"status"`
	Note   string  `json:"note"`
	Serial *string `json:"sn_no"`
	IMEI1  *string `json:"imei_1"`
	IMEI2  *string `json:"imei_2"`
}

// deviceResponse is a written device plus the audit gap warning, if any.
type deviceResponse struct {
	*device.Device
	Warning string `json:"warning,omitempty"`
}

// handleListDevices returns one page of the registry, newest first.
//
// Query parameters:
//   - page: 1-based page number (default 1)
//   - limit: page size (default and cap from api config)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		writeBadRequest(w, "page must be a number")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeBadRequest(w, "limit must be a number")
		return
	}

	result, err := s.tracker.ListPage(r.Context(), page, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCreateDevice registers a device with its seed history entry.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.tracker.RegisterNew(r.Context(), tracker.CreateInput{
		Serial: req.Serial,
		IMEI1:  req.IMEI1,
		IMEI2:  req.IMEI2,
		Status: req.Status,
		Note:   req.Note,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeWriteResult(w, http.StatusCreated, result)
}

// handleGetDevice returns a device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.tracker.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleGetDeviceBySerial returns a device by serial, ignoring case.
func (s *Server) handleGetDeviceBySerial(w http.ResponseWriter, r *http.Request) {
	d, err := s.tracker.GetBySerial(r.Context(), chi.URLParam(r, "serial"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleUpdateDevice records a status change and optional identifier edits.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var req updateDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.tracker.RecordUpdate(r.Context(), chi.URLParam(r, "id"), tracker.UpdateInput{
		Status: req.Status,
		Note:   req.Note,
		Serial: req.Serial,
		IMEI1:  req.IMEI1,
		IMEI2:  req.IMEI2,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeWriteResult(w, http.StatusOK, result)
}

// handleDeleteDevice removes a device and its history.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := s.tracker.Delete(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if result.AuditGap() {
		w.Header().Set(auditWarningHeader, result.Warning)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Device deleted",
		"_id":     id,
		"warning": result.Warning,
	})
}

// writeWriteResult answers a committed write, flagging an audit gap.
func writeWriteResult(w http.ResponseWriter, status int, result *tracker.WriteResult) {
	if result.AuditGap() {
		w.Header().Set(auditWarningHeader, result.Warning)
	}
	writeJSON(w, status, deviceResponse{Device: result.Device, Warning: result.Warning})
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
