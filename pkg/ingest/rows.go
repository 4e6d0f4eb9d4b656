package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// Delimiter separates fields within a line.
const Delimiter = ","

// Row is one line of input split into trimmed fields.
type Row []string

// SplitRows splits raw text into lines on line feeds and each line into fields on
// the delimiter. Fields are trimmed. Quotes are not interpreted: a quoted field
// that contains the delimiter is split like any other text.
func SplitRows(raw string) []Row {
	content := normalize(raw)
	if content == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	rows := make([]Row, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, splitLine(line))
	}
	return rows
}

func splitLine(line string) Row {
	fields := strings.Split(line, Delimiter)
	row := make(Row, len(fields))
	for i, f := range fields {
		row[i] = strings.TrimSpace(f)
	}
	return row
}

// splitQuoted tokenizes with encoding/csv so quoted fields may contain the
// delimiter. Blank lines are skipped and records the reader rejects are counted
// as malformed instead of aborting the batch.
func splitQuoted(raw string) (rows []Row, malformed int) {
	content := normalize(raw)
	if content == "" {
		return nil, 0
	}

	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				malformed++
				continue
			}
			break
		}

		row := make(Row, len(rec))
		for i, f := range rec {
			row[i] = strings.TrimSpace(f)
		}
		rows = append(rows, row)
	}
	return rows, malformed
}

// normalize drops a UTF-8 byte order mark and surrounding whitespace.
func normalize(raw string) string {
	return strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
}
