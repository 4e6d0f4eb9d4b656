// Package report renders vulnerability collections for terminals and other tools.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/muesli/termenv"
	"github.com/olekukonko/tablewriter"

	"github.com/user/vulndash/pkg/engine"
	"github.com/user/vulndash/pkg/ingest"
)

var severityColors = map[engine.Severity]string{
	engine.SeverityCritical: "#d70000",
	engine.SeverityHigh:     "#ff8700",
	engine.SeverityMedium:   "#ffd700",
	engine.SeverityLow:      "#5fafff",
}

// Colorize paints a severity label for the given terminal profile. termenv.Ascii
// leaves it untouched.
func Colorize(profile termenv.Profile, s engine.Severity) string {
	hex, ok := severityColors[s]
	if !ok {
		return s.String()
	}
	return profile.String(s.String()).Foreground(profile.Color(hex)).String()
}

// WriteTable prints one row per vulnerability.
func WriteTable(w io.Writer, vulns []engine.Vulnerability, profile termenv.Profile) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"severity", "title", "location", "rule", "branch", "commit", "id"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetColumnSeparator("")

	for _, v := range vulns {
		table.Append([]string{
			Colorize(profile, v.Severity),
			v.Title,
			location(v),
			v.Rule,
			v.Branch,
			v.Commit,
			v.ID,
		})
	}
	table.Render()
	return nil
}

func location(v engine.Vulnerability) string {
	if v.Line > 0 {
		return fmt.Sprintf("%s:%d", v.File, v.Line)
	}
	return v.File
}

// WriteSummary prints the per-severity counts.
func WriteSummary(w io.Writer, c engine.Counts, profile termenv.Profile) error {
	_, err := fmt.Fprintf(w, "Total: %d  %s: %d  %s: %d  %s: %d  %s: %d\n",
		c.Total,
		Colorize(profile, engine.SeverityCritical), c.Critical,
		Colorize(profile, engine.SeverityHigh), c.High,
		Colorize(profile, engine.SeverityMedium), c.Medium,
		Colorize(profile, engine.SeverityLow), c.Low,
	)
	return err
}

func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCSV writes vulnerabilities under the canonical header. Fields holding a
// comma, a quote or a line break come out quoted, and only the quoted-field
// pipeline (ingest --quoted) reads those rows back; the default splitter does not
// unquote.
func WriteCSV(w io.Writer, vulns []engine.Vulnerability) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ingest.Columns); err != nil {
		return err
	}
	for _, v := range vulns {
		if err := cw.Write([]string{
			v.Severity.String(),
			v.Title,
			v.Description,
			v.File,
			strconv.Itoa(v.Line),
			v.Rule,
			v.Branch,
			v.Commit,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
