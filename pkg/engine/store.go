package engine

import (
	"fmt"
	"strings"
	"sync"
)

// Store holds the running collection of scans shown on the dashboard
type Store struct {
	scans []ScanResult
	mu    sync.RWMutex
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		scans: make([]ScanResult, 0),
	}
}

// AddScan merges a new scan into the collection. The newest scan comes first.
func (s *Store) AddScan(scan ScanResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scans = append([]ScanResult{scan}, s.scans...)
}

// Scans returns a copy of all scans, newest first
func (s *Store) Scans() []ScanResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ScanResult, len(s.scans))
	copy(out, s.scans)
	return out
}

// Vulnerabilities flattens all scans into one list, newest scan first
func (s *Store) Vulnerabilities() []Vulnerability {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.flatten()
}

func (s *Store) flatten() []Vulnerability {
	out := make([]Vulnerability, 0)
	for _, scan := range s.scans {
		out = append(out, scan.Vulnerabilities...)
	}
	return out
}

// Find looks up a vulnerability by id. The newest match wins when ids collide
// across batches.
func (s *Store) Find(id string) (Vulnerability, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, scan := range s.scans {
		for _, v := range scan.Vulnerabilities {
			if v.ID == id {
				return v, true
			}
		}
	}
	return Vulnerability{}, false
}

// Filter returns the vulnerabilities whose title or file contains search
// (case-insensitive) and whose severity matches. An empty severity or "all"
// matches every severity.
func (s *Store) Filter(search, severity string) []Vulnerability {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(search)
	sev := strings.ToLower(severity)

	out := make([]Vulnerability, 0)
	for _, v := range s.flatten() {
		matchesSearch := strings.Contains(strings.ToLower(v.Title), needle) ||
			strings.Contains(strings.ToLower(v.File), needle)
		matchesSeverity := sev == "" || sev == "all" || string(v.Severity) == sev
		if matchesSearch && matchesSeverity {
			out = append(out, v)
		}
	}
	return out
}

// Counts computes per-severity totals over the whole collection
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return CountBySeverity(s.flatten())
}

// GetReport returns a text summary of the collection
func (s *Store) GetReport() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vulns := s.flatten()
	c := CountBySeverity(vulns)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Security Overview (%d scans, %d vulnerabilities):\n", len(s.scans), c.Total))
	sb.WriteString(fmt.Sprintf("  critical=%d high=%d medium=%d low=%d\n", c.Critical, c.High, c.Medium, c.Low))
	sb.WriteString("--------------------------------------------------\n")

	sb.WriteString(FormatVulnerabilities(vulns))
	return sb.String()
}

// FormatVulnerabilities renders one block per vulnerability.
func FormatVulnerabilities(vulns []Vulnerability) string {
	var sb strings.Builder
	for _, v := range vulns {
		sb.WriteString(fmt.Sprintf("[%s] %s (%s)\n", strings.ToUpper(string(v.Severity)), v.Title, v.ID))
		sb.WriteString(fmt.Sprintf("  Location: %s:%d\n", v.File, v.Line))
		if v.Rule != "" {
			sb.WriteString(fmt.Sprintf("  Rule: %s\n", v.Rule))
		}
		sb.WriteString(fmt.Sprintf("  Branch: %s @ %s\n", v.Branch, v.Commit))
		sb.WriteString("\n")
	}
	return sb.String()
}
