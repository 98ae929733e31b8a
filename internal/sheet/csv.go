package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ReadCSV reads a header-first comma separated file. Rows may have fewer
// or more fields than the header. Each Line carries the file line its
// record starts on, so blank lines still count.
func ReadCSV(r io.Reader) ([]Line, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var table [][]string
	var numbers []int
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		table = append(table, record)
		numbers = append(numbers, line)
	}
	if len(table) > 0 && len(table[0]) > 0 {
		table[0][0] = trimBOM(table[0][0])
	}
	return rowsFromTable(table, numbers), nil
}

// WriteCSV writes records with ExportHeaders as the first line.
func WriteCSV(w io.Writer, records []Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ExportHeaders); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, rec := range records {
		if err := writer.Write(rec.cells()); err != nil {
			return fmt.Errorf("writing %s: %w", rec.Serial, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// trimBOM drops the UTF-8 byte order mark spreadsheet tools prepend.
func trimBOM(s string) string {
	if len(s) >= 3 && s[0] == 0xEF && s[1] == 0xBB && s[2] == 0xBF {
		return s[3:]
	}
	return s
}
