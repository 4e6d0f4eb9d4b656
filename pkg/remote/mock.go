package remote

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

// Simulated latencies of the mock host.
const (
	MockListDelay  = 800 * time.Millisecond
	MockFetchDelay = 1200 * time.Millisecond
	MockProbeDelay = 1500 * time.Millisecond
)

var mockFiles = []string{
	"semgrep_findings_2024_01_15.csv",
	"semgrep_findings_2024_01_14.csv",
	"semgrep_findings_2024_01_13.csv",
	"security_scan_results.csv",
	"vulnerability_report.csv",
	"code_analysis_2024_01_12.csv",
	"sast_results_main_branch.csv",
	"dependency_scan_results.csv",
}

type mockRow struct {
	severity, title, description, file string
	line                               int
	rule, branch, commit               string
}

var mockRows = []mockRow{
	{"critical", "SQL Injection Vulnerability", "Potential SQL injection in user input handling", "src/auth/login.js", 45, "security.detect-sql-injection", "main", "abc123f"},
	{"high", "Cross-Site Scripting (XSS)", "Unescaped user input in template rendering", "src/components/UserProfile.jsx", 78, "security.detect-xss", "main", "abc123f"},
	{"high", "Path Traversal Vulnerability", "Unsafe file path construction allows directory traversal", "src/utils/fileHandler.js", 23, "security.detect-path-traversal", "feature/file-upload", "def456g"},
	{"medium", "Hardcoded Secret", "API key found in source code", "src/config/api.js", 12, "security.detect-hardcoded-secrets", "main", "abc123f"},
	{"medium", "Weak Cryptographic Hash", "Use of MD5 hash function detected", "src/utils/crypto.js", 67, "security.detect-weak-crypto", "main", "ghi789h"},
	{"medium", "Insecure Random Number Generation", "Math.random() used for security-sensitive operations", "src/auth/tokenGenerator.js", 34, "security.detect-insecure-random", "develop", "jkl012i"},
	{"low", "Missing Input Validation", "User input not properly validated", "src/api/userController.js", 89, "security.detect-missing-validation", "main", "abc123f"},
	{"low", "Information Disclosure", "Sensitive information in error messages", "src/middleware/errorHandler.js", 56, "security.detect-info-disclosure", "main", "mno345j"},
	{"critical", "Command Injection", "Unsafe execution of system commands", "src/utils/systemUtils.js", 91, "security.detect-command-injection", "feature/system-integration", "pqr678k"},
	{"high", "LDAP Injection", "Unsanitized input in LDAP query", "src/auth/ldapAuth.js", 42, "security.detect-ldap-injection", "main", "stu901l"},
}

// MockSource simulates an SFTP host that holds scanner reports. Connections
// fail for hosts containing "invalid", the host "bad-host", the user
// "invalid-user" and keys without PEM armor.
type MockSource struct {
	cfg Config
	// Latency scales the simulated delays. Zero disables them.
	Latency float64
}

func NewMockSource(cfg Config) *MockSource {
	return &MockSource{cfg: cfg}
}

func (m *MockSource) connect(ctx context.Context, delay time.Duration) error {
	if err := m.wait(ctx, delay); err != nil {
		return err
	}
	if !strings.Contains(m.cfg.PrivateKey, "BEGIN") || !strings.Contains(m.cfg.PrivateKey, "END") {
		return errors.WithStack(ErrInvalidKey)
	}
	if strings.Contains(m.cfg.Host, "invalid") || m.cfg.Host == "bad-host" {
		return errors.Wrapf(ErrHostNotFound, "%s", m.cfg.Host)
	}
	if m.cfg.Username == "invalid-user" {
		return errors.Wrapf(ErrAuthFailed, "user %s", m.cfg.Username)
	}
	return nil
}

func (m *MockSource) wait(ctx context.Context, d time.Duration) error {
	d = time.Duration(float64(d) * m.Latency)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *MockSource) Probe(ctx context.Context) (Probe, error) {
	start := time.Now()
	if err := m.connect(ctx, MockProbeDelay); err != nil {
		return Probe{}, err
	}

	csvs := mockFiles[:5]
	return Probe{
		Message:     fmt.Sprintf("Connected successfully! Found %d CSV files in %s", len(csvs), m.cfg.RemotePath),
		DurationMS:  time.Since(start).Milliseconds(),
		TotalFiles:  len(csvs) + 3,
		CSVFiles:    len(csvs),
		RemotePath:  m.cfg.RemotePath,
		SampleFiles: sample(csvs, 3),
	}, nil
}

// List returns the simulated reports newest first.
func (m *MockSource) List(ctx context.Context) ([]string, error) {
	if err := m.connect(ctx, MockListDelay); err != nil {
		return nil, err
	}
	names := make([]string, len(mockFiles))
	copy(names, mockFiles)
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	log.Debug().Int("files", len(names)).Msg("mock list")
	return names, nil
}

func (m *MockSource) Fetch(ctx context.Context, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if err := m.connect(ctx, MockFetchDelay); err != nil {
		return "", err
	}
	return mockCSV(name), nil
}

// mockCSV renders the rows the simulated host serves for a file name.
func mockCSV(name string) string {
	var rows []mockRow
	switch {
	case strings.Contains(name, "2024_01_15"):
		rows = mockRows[0:8]
	case strings.Contains(name, "2024_01_14"):
		rows = mockRows[2:7]
	case strings.Contains(name, "security_scan"):
		for _, r := range mockRows {
			if r.severity == "critical" || r.severity == "high" {
				rows = append(rows, r)
			}
		}
	default:
		rows = mockRows
	}

	var b strings.Builder
	b.WriteString("severity,title,description,file,line,rule,branch,commit")
	for _, r := range rows {
		fmt.Fprintf(&b, "\n%s,\"%s\",\"%s\",%s,%d,%s,%s,%s",
			r.severity, r.title, r.description, r.file, r.line, r.rule, r.branch, r.commit)
	}
	return b.String()
}
