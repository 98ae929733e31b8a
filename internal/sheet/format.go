package sheet

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Format is a supported file type.
type Format string

// Supported formats.
const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat is returned for files that are neither xlsx nor csv.
var ErrUnsupportedFormat = errors.New("sheet: unsupported file format")

// ExportSheet is the worksheet name of xlsx exports.
const ExportSheet = "Inventory"

// ExportHeaders are the column headers of an export, in order.
var ExportHeaders = []string{"SN", "IMEI 1", "IMEI 2", "Status", "Added On"}

// Record is one exported device.
type Record struct {
	Serial  string
	IMEI1   string
	IMEI2   string
	Status  string
	AddedOn time.Time
}

// ParseFormat maps "xlsx" or "csv", in any case, to a Format. An empty
// value selects xlsx.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xlsx":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// FormatOf picks the format from a file name's extension.
func FormatOf(name string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, name)
	}
	return ParseFormat(ext)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename returns the attachment name of an export in this format.
func (f Format) Filename() string {
	return "GripID_Inventory." + string(f)
}

// Read parses an import file of the given format.
func Read(r io.Reader, format Format) ([]Line, error) {
	switch format {
	case FormatXLSX:
		return ReadXLSX(r)
	case FormatCSV:
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Write renders records in the given format.
func Write(w io.Writer, format Format, records []Record) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, records)
	case FormatCSV:
		return WriteCSV(w, records)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func (r Record) cells() []string {
	return []string{r.Serial, r.IMEI1, r.IMEI2, r.Status, r.AddedOn.UTC().Format(time.RFC3339)}
}
