package engine

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sqlTemplate = `rule: security.detect-sql-injection
name: Parameterize SQL queries
risk: Attacker-controlled input reaches the database driver
standard: OWASP A03:2021
fix_command: "Replace string concatenation in {{.File}} line {{.Line}} with bound parameters"
validation_command: "git grep -n \"query(\" {{.File}}"
rollback_command: "git checkout {{.Commit}} -- {{.File}}"
`

func TestRemediationEngine_GeneratePlan(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "templates/sql.yaml", []byte(sqlTemplate), 0o644))
	require.NoError(t, afero.WriteFile(fs, "templates/README.md", []byte("ignored"), 0o644))

	eng := NewRemediationEngine()
	require.NoError(t, eng.LoadTemplates(fs, "templates"))
	assert.Equal(t, []string{"security.detect-sql-injection: Parameterize SQL queries"}, eng.ListTemplates())

	v := Vulnerability{
		Title:  "SQL Injection",
		File:   "src/auth/login.js",
		Line:   45,
		Rule:   "security.detect-sql-injection",
		Commit: "abc123f",
	}
	plan, err := eng.GeneratePlan(v)
	require.NoError(t, err)
	assert.Contains(t, plan, "Issue: SQL Injection (src/auth/login.js:45)")
	assert.Contains(t, plan, "Replace string concatenation in src/auth/login.js line 45 with bound parameters")
	assert.Contains(t, plan, "git checkout abc123f -- src/auth/login.js")
	assert.Contains(t, plan, "Standard: OWASP A03:2021")
}

func TestRemediationEngine_UnknownRule(t *testing.T) {
	eng := NewRemediationEngine()
	_, err := eng.GeneratePlan(Vulnerability{Rule: "nope"})
	assert.True(t, errors.Is(err, ErrTemplateNotFound))
}

func TestRemediationEngine_TemplateWithoutRule(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "t/bad.yml", []byte("name: nothing\n"), 0o644))

	eng := NewRemediationEngine()
	assert.Error(t, eng.LoadTemplates(fs, "t"))
}
