package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/vulndash/pkg/engine"
	"github.com/user/vulndash/pkg/ingest"
)

func sampleVulns() []engine.Vulnerability {
	return engine.SeedScan(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)).Vulnerabilities
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleVulns(), termenv.Ascii))

	out := buf.String()
	assert.Contains(t, out, "SQL Injection Vulnerability")
	assert.Contains(t, out, "src/auth/login.js:45")
	assert.Contains(t, out, "critical")
	assert.NotContains(t, out, "\x1b[")
}

func TestColorize(t *testing.T) {
	assert.Equal(t, "high", Colorize(termenv.Ascii, engine.SeverityHigh))
	assert.Contains(t, Colorize(termenv.TrueColor, engine.SeverityHigh), "\x1b[")
	assert.Equal(t, "info", Colorize(termenv.TrueColor, engine.Severity("info")))
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, engine.Counts{Total: 4, Critical: 1, High: 2, Low: 1}, termenv.Ascii))
	assert.Equal(t, "Total: 4  critical: 1  high: 2  medium: 0  low: 1\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleVulns()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, "vuln-1", decoded[0]["id"])
	assert.Equal(t, "critical", decoded[0]["severity"])
}

func TestWriteCSV_FeedsBackIntoPipeline(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleVulns()))
	assert.True(t, strings.HasPrefix(buf.String(), "severity,title,description,file,line,rule,branch,commit\n"))

	again := ingest.New(ingest.WithQuotedFields()).Ingest(buf.String())
	require.Len(t, again, 3)
	assert.Equal(t, "Cross-Site Scripting (XSS)", again[1].Title)
	assert.Equal(t, 78, again[1].Line)
	assert.Equal(t, "abc123f", again[1].Commit)
}

func TestWriteCSV_DefaultPipeline(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleVulns()))

	again := ingest.Ingest(buf.String())
	require.Len(t, again, 3)
	assert.Equal(t, "src/components/UserProfile.jsx", again[1].File)
	assert.Equal(t, 78, again[1].Line)
}

func TestWriteCSV_EmbeddedCommaNeedsQuotedPipeline(t *testing.T) {
	vulns := []engine.Vulnerability{{
		Severity: engine.SeverityHigh, Title: "Injection, blind", File: "a.js",
		Line: 3, Branch: "main", Commit: "c",
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, vulns))
	assert.Contains(t, buf.String(), `high,"Injection, blind",,a.js,3,,main,c`)

	assert.Empty(t, ingest.Ingest(buf.String()))

	again := ingest.New(ingest.WithQuotedFields()).Ingest(buf.String())
	require.Len(t, again, 1)
	assert.Equal(t, "Injection, blind", again[0].Title)
	assert.Equal(t, "a.js", again[0].File)
}

func TestWriteSARIF(t *testing.T) {
	vulns := append(sampleVulns(), engine.Vulnerability{
		ID: "vuln-4", Severity: engine.SeverityCritical, Title: "Other SQLi",
		File: "src/db.js", Line: 3, Rule: "security/detect-sql-injection",
	})

	var buf bytes.Buffer
	require.NoError(t, WriteSARIF(&buf, vulns))

	var doc struct {
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Rules []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID    string `json:"ruleId"`
				Level     string `json:"level"`
				Locations []struct {
					PhysicalLocation struct {
						ArtifactLocation struct {
							URI string `json:"uri"`
						} `json:"artifactLocation"`
						Region struct {
							StartLine int `json:"startLine"`
						} `json:"region"`
					} `json:"physicalLocation"`
				} `json:"locations"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "2.1.0", doc.Version)
	require.Len(t, doc.Runs, 1)

	run := doc.Runs[0]
	assert.Len(t, run.Tool.Driver.Rules, 3)
	require.Len(t, run.Results, 4)
	assert.Equal(t, "error", run.Results[0].Level)
	assert.Equal(t, "warning", run.Results[2].Level)
	assert.Equal(t, "src/auth/login.js", run.Results[0].Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, 45, run.Results[0].Locations[0].PhysicalLocation.Region.StartLine)
}

func TestToSarifLevel(t *testing.T) {
	assert.Equal(t, "note", toSarifLevel(engine.SeverityLow))
	assert.Equal(t, "none", toSarifLevel(engine.Severity("info")))
}
