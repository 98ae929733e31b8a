package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gripid/tracker-core/internal/audit"
	"github.com/gripid/tracker-core/internal/device"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// conflictError is the 409 body; it names the colliding identifier and the
// device that already holds it.
type conflictError struct {
	Error
	Reason   device.ConflictReason `json:"reason"`
	Existing device.Device         `json:"existing"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeForbidden      = "forbidden"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeUnavailable    = "service_unavailable"
	ErrCodeTooLarge       = "payload_too_large"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// auditWarningHeader carries the audit gap warning of a committed write.
const auditWarningHeader = "X-Audit-Warning"

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeServiceError maps a tracker error onto an HTTP response. Storage
// failures are logged; their detail is not sent to the client.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *device.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, conflictError{
			Error: Error{
				Status:  http.StatusConflict,
				Code:    ErrCodeConflict,
				Message: conflictMessage(conflict.Reason),
			},
			Reason:   conflict.Reason,
			Existing: conflict.Existing,
		})
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
	case device.IsValidation(err), errors.Is(err, audit.ErrInvalidEntry):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, device.ErrPersistence), errors.Is(err, audit.ErrPersistence):
		s.logger.Error("storage unavailable",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
			"error", err,
		)
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "storage unavailable, try again")
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
			"error", err,
		)
		writeInternalError(w, "internal server error")
	}
}

func conflictMessage(reason device.ConflictReason) string {
	if reason == device.ReasonIMEI {
		return "IMEI already exists"
	}
	return "SN already exists"
}
