package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/gripid/tracker-core/internal/sheet"
	"github.com/gripid/tracker-core/internal/tracker"
)

// multipartMemory is the part of an upload parsed in memory; the rest
// spills to temporary files.
const multipartMemory = 8 << 20

// importResponse is the body of POST /import.
type importResponse struct {
	Message string `json:"message"`
	*tracker.ImportReport
}

// abortedImport is the body of an import stopped by a storage failure.
// Rows already added stay added and are listed in the report.
type abortedImport struct {
	Error
	*tracker.ImportReport
}

// handleImport bulk-registers the rows of an uploaded spreadsheet.
//
// The file is the multipart field "file". Its format comes from the
// ?format query parameter or else the file name's extension.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge,
				"upload exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
			return
		}
		writeBadRequest(w, "multipart form with a file field is required")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // Best-effort temp file cleanup

	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "no file uploaded")
		return
	}
	defer file.Close()

	format, err := importFormat(r, header.Filename)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	rows, err := sheet.Read(file, format)
	if err != nil {
		writeBadRequest(w, "unreadable spreadsheet: "+err.Error())
		return
	}

	report, err := s.tracker.BulkImport(r.Context(), header.Filename, rows)
	if err != nil {
		s.logger.Error("import aborted",
			"file", header.Filename,
			"added", report.Added,
			"skipped", report.Skipped,
			"failed", report.Failed,
			"request_id", r.Context().Value(ctxKeyRequestID),
			"error", err,
		)
		writeJSON(w, http.StatusServiceUnavailable, abortedImport{
			Error: Error{
				Status:  http.StatusServiceUnavailable,
				Code:    ErrCodeUnavailable,
				Message: "import aborted, rows listed in logs were processed",
			},
			ImportReport: report,
		})
		return
	}

	if report.AuditGaps > 0 {
		w.Header().Set(auditWarningHeader, strconv.Itoa(report.AuditGaps)+" rows added without history entries")
	}
	writeJSON(w, http.StatusOK, importResponse{Message: "Import Complete", ImportReport: report})
}

// handleExport streams the whole registry as a spreadsheet.
//
// The file is built in memory first so a storage failure still answers
// with a proper error status.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := sheet.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeBadRequest(w, "format must be xlsx or csv")
		return
	}

	records, err := s.tracker.ExportAll(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := sheet.Write(&buf, format, records); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename()+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	buf.WriteTo(w)
}

func importFormat(r *http.Request, filename string) (sheet.Format, error) {
	if f := r.URL.Query().Get("format"); f != "" {
		return sheet.ParseFormat(f)
	}
	return sheet.FormatOf(filename)
}
