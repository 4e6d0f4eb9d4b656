package engine

import (
	"time"

	"github.com/segmentio/ksuid"
)

type ScanStatus string

// ScanCompleted is the status of every recorded scan: ingestion is synchronous.
const ScanCompleted ScanStatus = "completed"

// ScanResult is one batch of vulnerabilities merged into the dashboard, e.g. one
// downloaded CSV file.
type ScanResult struct {
	ID        string     `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Branch    string     `json:"branch"`
	Commit    string     `json:"commit"`
	Status    ScanStatus `json:"status"`
	Counts
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
}

// NewScanResult wraps an ingested batch in a completed scan.
func NewScanResult(vulns []Vulnerability, branch, commit string, now time.Time) ScanResult {
	if vulns == nil {
		vulns = []Vulnerability{}
	}
	return ScanResult{
		ID:              "scan-" + ksuid.New().String(),
		Timestamp:       now,
		Branch:          branch,
		Commit:          commit,
		Status:          ScanCompleted,
		Counts:          CountBySeverity(vulns),
		Vulnerabilities: vulns,
	}
}

// SeedScan returns the demo scan the dashboard shows before any file was loaded.
func SeedScan(now time.Time) ScanResult {
	seed := []Vulnerability{
		{
			ID:          "vuln-1",
			Severity:    SeverityCritical,
			Title:       "SQL Injection Vulnerability",
			Description: "Potential SQL injection in user input handling",
			File:        "src/auth/login.js",
			Line:        45,
			Rule:        "security/detect-sql-injection",
		},
		{
			ID:          "vuln-2",
			Severity:    SeverityHigh,
			Title:       "Cross-Site Scripting (XSS)",
			Description: "Unescaped user input in template rendering",
			File:        "src/components/UserProfile.jsx",
			Line:        78,
			Rule:        "security/detect-xss",
		},
		{
			ID:          "vuln-3",
			Severity:    SeverityMedium,
			Title:       "Hardcoded Secret",
			Description: "API key found in source code",
			File:        "src/config/api.js",
			Line:        12,
			Rule:        "security/detect-hardcoded-secrets",
		},
	}
	for i := range seed {
		seed[i].Timestamp = now
		seed[i].Branch = "main"
		seed[i].Commit = "abc123f"
	}

	scan := NewScanResult(seed, "main", "abc123f", now)
	scan.ID = "scan-1"
	return scan
}
