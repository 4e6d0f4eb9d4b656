package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/vulndash/pkg/config"
	"github.com/user/vulndash/pkg/engine"
)

const header = "severity,title,description,file,line,rule,branch,commit"

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func writeCSV(t *testing.T, dir, name string, rows ...string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	content := header
	for _, r := range rows {
		content += "\n" + r
	}
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestIngestJSON(t *testing.T) {
	dir := t.TempDir()
	csv := writeCSV(t, dir, "report.csv",
		"high,XSS,desc,a.js,10,rule-xss,main,abc",
		"low,Weak Random,desc,b.js,3,rule-rand,main,abc",
		",missing severity,desc,c.js,1,rule,main,abc",
	)

	out := run(t, "ingest", csv, "--format", "json", "--save=", "--no-color")

	var vulns []engine.Vulnerability
	require.NoError(t, json.Unmarshal([]byte(out), &vulns))
	require.Len(t, vulns, 2)
	assert.Equal(t, engine.SeverityHigh, vulns[0].Severity)
	assert.Equal(t, "b.js", vulns[1].File)
}

func TestSnapshotDiff(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.json")
	cur := filepath.Join(dir, "cur.json")

	run(t, "ingest", writeCSV(t, dir, "old.csv",
		"critical,SQLi,desc,db.js,5,rule-sql,main,a1",
		"medium,Secret,desc,cfg.js,2,rule-secret,main,a1",
	), "--format", "json", "--save", base)
	run(t, "ingest", writeCSV(t, dir, "new.csv",
		"medium,Secret,desc,cfg.js,2,rule-secret,main,b2",
		"low,Info,desc,log.js,9,rule-info,main,b2",
	), "--format", "json", "--save", cur)

	out := run(t, "snapshot", "diff", base, cur, "--format", "json")

	var diff engine.SnapshotDiff
	require.NoError(t, json.Unmarshal([]byte(out), &diff))
	require.Len(t, diff.New, 1)
	require.Len(t, diff.Fixed, 1)
	require.Len(t, diff.Unchanged, 1)
	assert.Equal(t, "Info", diff.New[0].Title)
	assert.Equal(t, "SQLi", diff.Fixed[0].Title)

	text := run(t, "snapshot", "diff", base, cur, "--format", "text")
	assert.Contains(t, text, "SQLi")
	assert.Contains(t, text, "Info")
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	run(t, "config", "set-key", "--provider", "gemini", "--key", "super-secret", "--config", path)
	out := run(t, "config", "show", "--config", path)

	assert.Contains(t, out, "<redacted>")
	assert.NotContains(t, out, "super-secret")
	assert.Contains(t, out, "selected_provider")
}

func TestConfigSetKeyKeepsEnvOverridesOutOfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("VULNDASH_SERVER_PORT", "9999")
	t.Setenv("VULNDASH_SERVER_SEED", "false")

	run(t, "config", "set-key", "--provider", "gemini", "--key", "k1", "--config", path)
	run(t, "config", "set-model", "--model", "gemini-1.5-pro", "--config", path)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.Seed)
	assert.Equal(t, "k1", cfg.Providers["gemini"].APIKey)
	assert.Equal(t, "gemini-1.5-pro", cfg.SelectedModel)
}

func TestShippedRemediationTemplates(t *testing.T) {
	rem, err := loadRemediation("../remediation_templates")
	require.NoError(t, err)

	for _, v := range engine.SeedScan(time.Now()).Vulnerabilities {
		plan, err := rem.GeneratePlan(v)
		require.NoError(t, err, v.Rule)
		assert.Contains(t, plan, v.File)
	}
}

func TestChooseProvider(t *testing.T) {
	p, err := chooseProvider("1")
	require.NoError(t, err)
	assert.Equal(t, "gemini", p)

	p, err = chooseProvider("OpenAI")
	require.NoError(t, err)
	assert.Equal(t, "openai", p)

	p, err = chooseProvider("")
	require.NoError(t, err)
	assert.Empty(t, p)

	_, err = chooseProvider("9")
	assert.Error(t, err)
}
