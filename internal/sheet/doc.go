// Package sheet reads and writes the tabular inventory files exchanged with
// warehouse staff.
//
// Import files (xlsx or csv) are read into Lines: RawRow maps keyed by
// header text, numbered by their row in the source file. Extract turns a RawRow into a typed Row by trying an ordered list
// of accepted header spellings per field, so files produced by older
// tooling and by Write both import cleanly.
//
// Export files carry one row per device with the headers in
// ExportHeaders.
package sheet
