package sheet

import "strings"

// RawRow is one data row keyed by its header cell text.
type RawRow map[string]string

// Line is a data row together with its 1-based row number in the source
// file, counting the header and any blank rows before it.
type Line struct {
	Number int
	Raw    RawRow
}

// Row is the typed view of a RawRow. All values are trimmed; a field
// missing under every alias is empty.
type Row struct {
	Serial string
	IMEI1  string
	IMEI2  string
	Status string
	Note   string
}

// Accepted header spellings, tried in order.
var (
	SerialAliases = []string{"sn_no", "SN", "Serial", "sn"}
	IMEI1Aliases  = []string{"imei_1", "IMEI1", "imei1", "IMEI 1"}
	IMEI2Aliases  = []string{"imei_2", "IMEI2", "imei2", "IMEI 2"}
	StatusAliases = []string{"status", "Status"}
	NoteAliases   = []string{"note", "Note"}
)

// Extract resolves each field of raw against its aliases. The first alias
// with a non-empty value wins.
func Extract(raw RawRow) Row {
	return Row{
		Serial: lookup(raw, SerialAliases),
		IMEI1:  lookup(raw, IMEI1Aliases),
		IMEI2:  lookup(raw, IMEI2Aliases),
		Status: lookup(raw, StatusAliases),
		Note:   lookup(raw, NoteAliases),
	}
}

func lookup(raw RawRow, aliases []string) string {
	for _, key := range aliases {
		if v := strings.TrimSpace(raw[key]); v != "" {
			return v
		}
	}
	return ""
}

// rowsFromTable converts a header-first table into Lines. numbers[i] is
// the source row number of table[i]. Header cells are trimmed; columns
// with a blank header and rows with no values are dropped, and the
// remaining rows keep their source numbers.
func rowsFromTable(table [][]string, numbers []int) []Line {
	if len(table) == 0 {
		return []Line{}
	}
	header := make([]string, len(table[0]))
	for i, h := range table[0] {
		header[i] = strings.TrimSpace(h)
	}

	lines := make([]Line, 0, len(table)-1)
	for n, cells := range table[1:] {
		raw := RawRow{}
		for i, cell := range cells {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if _, seen := raw[header[i]]; seen {
				continue
			}
			if strings.TrimSpace(cell) == "" {
				continue
			}
			raw[header[i]] = cell
		}
		if len(raw) == 0 {
			continue
		}
		lines = append(lines, Line{Number: numbers[n+1], Raw: raw})
	}
	return lines
}
