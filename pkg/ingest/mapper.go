package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/user/vulndash/pkg/engine"
)

const (
	DefaultBranch = "main"
	DefaultCommit = "unknown"
)

// ToVulnerability maps a validated record to the domain model. index is the
// record's position in the validated batch; together with now it forms the id.
func ToVulnerability(rec Record, index int, now time.Time) engine.Vulnerability {
	branch := rec[FieldBranch]
	if branch == "" {
		branch = DefaultBranch
	}
	commit := rec[FieldCommit]
	if commit == "" {
		commit = DefaultCommit
	}

	return engine.Vulnerability{
		ID:          fmt.Sprintf("vuln-%d-%d", now.UnixMilli(), index),
		Severity:    engine.Severity(strings.ToLower(strings.TrimSpace(rec[FieldSeverity]))),
		Title:       rec[FieldTitle],
		Description: rec[FieldDescription],
		File:        rec[FieldFile],
		Line:        parseLine(rec[FieldLine]),
		Rule:        rec[FieldRule],
		Timestamp:   now,
		Branch:      branch,
		Commit:      commit,
	}
}

// parseLine reads an optional sign and the leading digits of s. Anything that
// does not start with a number yields 0.
func parseLine(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
