package api

import (
	"encoding/json"
	"net/http"

	"github.com/gripid/tracker-core/internal/identity"
)

// scanRequest is the body of POST /scan: one raw scanner token and the
// form being filled.
type scanRequest struct {
	Raw  string            `json:"raw"`
	Form identity.ScanForm `json:"form"`
}

// scanResponse is the updated form and how the token was classified.
type scanResponse struct {
	Form  identity.ScanForm `json:"form"`
	Token identity.Token    `json:"token"`
}

// handleScan classifies a scanned barcode or QR token and applies it to
// the registration form.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	form, tok := identity.FillScan(req.Form, req.Raw)
	writeJSON(w, http.StatusOK, scanResponse{Form: form, Token: tok})
}
