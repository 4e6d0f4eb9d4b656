package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

type Severity string

const (
	SeverityUnknown  Severity = "unknown"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns an integer rank for comparison (Low=1, Critical=4).
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

func (s Severity) String() string {
	return string(s)
}

// ParseSeverity parses a severity string case-insensitively.
// Accepts "moderate" as "medium".
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, nil
	case "medium", "moderate":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return SeverityUnknown, errors.Newf("invalid severity: %s", s)
	}
}

// ParseSeverityFilter normalizes a severity filter. An empty value or "all"
// selects every severity and comes back empty.
func ParseSeverityFilter(s string) (Severity, error) {
	if v := strings.TrimSpace(s); v == "" || strings.EqualFold(v, "all") {
		return "", nil
	}
	return ParseSeverity(s)
}

// Vulnerability is a single security finding as shown on the dashboard.
type Vulnerability struct {
	ID          string    `json:"id"`
	Severity    Severity  `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	File        string    `json:"file"`
	Line        int       `json:"line"`
	Rule        string    `json:"rule"`
	Timestamp   time.Time `json:"timestamp"`
	Branch      string    `json:"branch"`
	Commit      string    `json:"commit"`
}

// Key identifies a finding across ingestions. IDs and timestamps are assigned per
// ingestion, so they are not part of it.
func (v Vulnerability) Key() string {
	return fmt.Sprintf("%s|%s|%d|%s", v.Rule, v.File, v.Line, v.Title)
}

// Counts holds per-severity totals.
type Counts struct {
	Total    int `json:"totalVulnerabilities"`
	Critical int `json:"criticalCount"`
	High     int `json:"highCount"`
	Medium   int `json:"mediumCount"`
	Low      int `json:"lowCount"`
}

// CountBySeverity tallies vulnerabilities per severity. Severities outside the ranked
// set only count towards Total.
func CountBySeverity(vulns []Vulnerability) Counts {
	c := Counts{Total: len(vulns)}
	for _, v := range vulns {
		switch v.Severity {
		case SeverityCritical:
			c.Critical++
		case SeverityHigh:
			c.High++
		case SeverityMedium:
			c.Medium++
		case SeverityLow:
			c.Low++
		}
	}
	return c
}
