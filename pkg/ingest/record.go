package ingest

import "strings"

// Column names the pipeline reads. Header names are matched exactly, without case
// folding.
const (
	FieldSeverity    = "severity"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldFile        = "file"
	FieldLine        = "line"
	FieldRule        = "rule"
	FieldBranch      = "branch"
	FieldCommit      = "commit"
)

// Columns is the canonical header order, as written by exporters.
var Columns = []string{
	FieldSeverity, FieldTitle, FieldDescription, FieldFile,
	FieldLine, FieldRule, FieldBranch, FieldCommit,
}

// HeaderMap maps a trimmed column name to its index. When a name repeats, the last
// occurrence wins.
type HeaderMap map[string]int

// MapHeaders builds a HeaderMap from the header row.
func MapHeaders(header Row) HeaderMap {
	m := make(HeaderMap, len(header))
	for i, name := range header {
		m[strings.TrimSpace(name)] = i
	}
	return m
}

// Record is one data row keyed by column name.
type Record map[string]string

// BuildRecords zips every data row with the headers, in input order. Positions a
// row lacks become empty strings and values beyond the last header are dropped.
func BuildRecords(headers HeaderMap, rows []Row) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, len(headers))
		for name, idx := range headers {
			if idx < len(row) {
				rec[name] = row[idx]
			} else {
				rec[name] = ""
			}
		}
		records = append(records, rec)
	}
	return records
}

// Validate reports whether a record carries the fields every finding needs:
// title, file and severity.
func Validate(rec Record) bool {
	return strings.TrimSpace(rec[FieldTitle]) != "" &&
		strings.TrimSpace(rec[FieldFile]) != "" &&
		strings.TrimSpace(rec[FieldSeverity]) != ""
}
