package wrappers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/user/vulndash/pkg/engine"
)

// GitleaksWrapper implements the Tool interface for Gitleaks. Leaks are
// recorded as a new scan so they show up next to the imported reports.
type GitleaksWrapper struct {
	Store *engine.Store
	// Binary defaults to "gitleaks" on PATH.
	Binary string
	Now    func() time.Time
}

func (g *GitleaksWrapper) Name() string {
	return "RunSecretScan"
}

func (g *GitleaksWrapper) Description() string {
	return "Scans a directory or repository for hardcoded secrets using Gitleaks and adds the leaks to the dashboard as a new scan."
}

func (g *GitleaksWrapper) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the directory or repository to scan. Defaults to current directory.",
			},
			"branch": map[string]interface{}{
				"type":        "string",
				"description": "Branch to record the scan under (default main)",
			},
		},
	}
}

func (g *GitleaksWrapper) Execute(ctx context.Context, args map[string]interface{}, progress func(string)) (string, error) {
	binary := g.Binary
	if binary == "" {
		binary = "gitleaks"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return "Error: 'gitleaks' binary not found. Please install it (e.g., 'brew install gitleaks') to use this tool.", nil
	}

	targetPath := stringArg(args, "path")
	if targetPath == "" {
		targetPath = "."
	}
	branch := stringArg(args, "branch")
	if branch == "" {
		branch = "main"
	}

	reportFile, err := os.CreateTemp("", "gitleaks-report-*.json")
	if err != nil {
		return fmt.Sprintf("Error creating temp file: %v", err), nil
	}
	reportPath := reportFile.Name()
	reportFile.Close()
	defer os.Remove(reportPath)

	if progress != nil {
		progress(fmt.Sprintf("Scanning %s for secrets...", targetPath))
	}

	cmd := exec.CommandContext(ctx, binary, "detect", "--source", targetPath, "--report-path", reportPath, "--report-format", "json")
	output, err := cmd.CombinedOutput()
	// exit code 1 means leaks were found
	var exitErr *exec.ExitError
	if err != nil && !(errors.As(err, &exitErr) && exitErr.ExitCode() == 1) {
		return fmt.Sprintf("Gitleaks failed: %v. Output:\n%s", err, string(output)), nil
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		return fmt.Sprintf("Error reading Gitleaks report: %v", err), nil
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	vulns, err := parseGitleaksReport(data, branch, now())
	if err != nil {
		return fmt.Sprintf("Warning: Failed to parse Gitleaks report: %v. Output:\n%s", err, string(output)), nil
	}
	if len(vulns) == 0 {
		return "No secrets found.", nil
	}

	if g.Store != nil {
		scan := engine.NewScanResult(vulns, branch, "gitleaks", now())
		g.Store.AddScan(scan)
		log.Info().Str("scan", scan.ID).Int("leaks", len(vulns)).Msg("recorded secret scan")
	}

	return fmt.Sprintf("Scan complete. Found %d secrets.\n\n%s", len(vulns), engine.FormatVulnerabilities(vulns)), nil
}

type gitleaksFinding struct {
	Description string `json:"Description"`
	File        string `json:"File"`
	StartLine   int    `json:"StartLine"`
	RuleID      string `json:"RuleID"`
	Commit      string `json:"Commit"`
}

// parseGitleaksReport converts a gitleaks JSON report. The secret itself is
// never copied into the vulnerability.
func parseGitleaksReport(data []byte, branch string, now time.Time) ([]engine.Vulnerability, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var leaks []gitleaksFinding
	if err := json.Unmarshal(data, &leaks); err != nil {
		return nil, errors.Wrap(err, "decode gitleaks report")
	}

	vulns := make([]engine.Vulnerability, 0, len(leaks))
	for i, l := range leaks {
		title := l.Description
		if title == "" {
			title = "Hardcoded Secret"
		}
		commit := l.Commit
		if commit == "" {
			commit = "unknown"
		}
		vulns = append(vulns, engine.Vulnerability{
			ID:          fmt.Sprintf("gitleaks-%d-%d", now.UnixMilli(), i),
			Severity:    engine.SeverityCritical,
			Title:       title,
			Description: "Revoke the secret immediately and remove it from git history.",
			File:        l.File,
			Line:        l.StartLine,
			Rule:        "gitleaks." + l.RuleID,
			Timestamp:   now,
			Branch:      branch,
			Commit:      commit,
		})
	}
	return vulns, nil
}
