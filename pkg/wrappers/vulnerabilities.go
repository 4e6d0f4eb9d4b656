package wrappers

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/vulndash/pkg/engine"
)

// ShowVulnerabilitiesWrapper implements the Tool interface for browsing the loaded findings
type ShowVulnerabilitiesWrapper struct {
	Store *engine.Store
}

func (s *ShowVulnerabilitiesWrapper) Name() string {
	return "ShowVulnerabilities"
}

func (s *ShowVulnerabilitiesWrapper) Description() string {
	return "Lists the loaded security findings with severity, location, rule and branch. Optionally filters by a search term (title or file) and a severity."
}

func (s *ShowVulnerabilitiesWrapper) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"search": map[string]interface{}{
				"type":        "string",
				"description": "Case-insensitive text matched against title and file path",
			},
			"severity": map[string]interface{}{
				"type":        "string",
				"description": "Only show findings of this severity",
				"enum":        []string{"all", "critical", "high", "medium", "low"},
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of findings to list (default 25)",
			},
		},
	}
}

func (s *ShowVulnerabilitiesWrapper) Execute(ctx context.Context, args map[string]interface{}, progress func(string)) (string, error) {
	if s.Store == nil {
		return "Error: vulnerability store not initialized.", nil
	}

	search := stringArg(args, "search")
	sev, err := engine.ParseSeverityFilter(stringArg(args, "severity"))
	if err != nil {
		return fmt.Sprintf("Error: %v. Use critical, high, medium, low or all.", err), nil
	}
	severity := sev.String()
	limit := intArg(args, "limit", 25)

	if search == "" && severity == "" && len(s.Store.Vulnerabilities()) <= limit {
		return s.Store.GetReport(), nil
	}

	matches := s.Store.Filter(search, severity)
	c := engine.CountBySeverity(matches)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d vulnerabilities (critical=%d high=%d medium=%d low=%d)", c.Total, c.Critical, c.High, c.Medium, c.Low))
	if search != "" {
		sb.WriteString(fmt.Sprintf(" matching %q", search))
	}
	if severity != "" {
		sb.WriteString(fmt.Sprintf(" with severity %s", severity))
	}
	sb.WriteString(":\n\n")

	shown := matches
	if len(shown) > limit {
		shown = shown[:limit]
	}
	sb.WriteString(engine.FormatVulnerabilities(shown))
	if len(matches) > limit {
		sb.WriteString(fmt.Sprintf("... and %d more.\n", len(matches)-limit))
	}
	return sb.String(), nil
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

// intArg reads a number argument; decoded JSON and model calls deliver float64.
func intArg(args map[string]interface{}, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return def
}

// stringsArg accepts either a list of strings or a single string.
func stringsArg(args map[string]interface{}, key string) []string {
	switch v := args[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
