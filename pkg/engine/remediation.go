package engine

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var ErrTemplateNotFound = errors.New("remediation template not found")

// RemediationTemplate describes how to fix findings raised by one rule.
// Command fields are text/template strings rendered against the Vulnerability.
type RemediationTemplate struct {
	Rule              string `yaml:"rule"`
	Name              string `yaml:"name"`
	Risk              string `yaml:"risk"`
	Standard          string `yaml:"standard"`
	Description       string `yaml:"description"`
	FixCommand        string `yaml:"fix_command"`
	ValidationCommand string `yaml:"validation_command"`
	RollbackCommand   string `yaml:"rollback_command"`
}

// RemediationEngine manages remediation templates keyed by rule id
type RemediationEngine struct {
	Templates map[string]RemediationTemplate
}

// NewRemediationEngine creates a new remediation engine
func NewRemediationEngine() *RemediationEngine {
	return &RemediationEngine{
		Templates: make(map[string]RemediationTemplate),
	}
}

// LoadTemplates reads YAML templates from a directory
func (e *RemediationEngine) LoadTemplates(fs afero.Fs, dir string) error {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return errors.Wrapf(err, "read templates dir %s", dir)
	}

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		data, err := afero.ReadFile(fs, filepath.Join(dir, entry.Name()))
		if err != nil {
			return errors.Wrapf(err, "read template %s", entry.Name())
		}

		var t RemediationTemplate
		if err := yaml.Unmarshal(data, &t); err != nil {
			return errors.Wrapf(err, "failed to parse %s", entry.Name())
		}
		if t.Rule == "" {
			return errors.Newf("template %s has no rule", entry.Name())
		}
		e.Templates[t.Rule] = t
		log.Debug().Str("rule", t.Rule).Str("file", entry.Name()).Msg("loaded remediation template")
	}
	return nil
}

// ListTemplates returns the available rule ids and template names, sorted by rule
func (e *RemediationEngine) ListTemplates() []string {
	list := make([]string, 0, len(e.Templates))
	for _, t := range e.Templates {
		list = append(list, fmt.Sprintf("%s: %s", t.Rule, t.Name))
	}
	sort.Strings(list)
	return list
}

// GeneratePlan renders the remediation plan for a vulnerability from the template
// registered for its rule
func (e *RemediationEngine) GeneratePlan(v Vulnerability) (string, error) {
	tmpl, ok := e.Templates[v.Rule]
	if !ok {
		return "", errors.Wrapf(ErrTemplateNotFound, "rule %q", v.Rule)
	}

	fixCmd, err := renderString("fix", tmpl.FixCommand, v)
	if err != nil {
		return "", err
	}
	validateCmd, err := renderString("validate", tmpl.ValidationCommand, v)
	if err != nil {
		return "", err
	}
	rollbackCmd, err := renderString("rollback", tmpl.RollbackCommand, v)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("[FIX PLAN]\n")
	sb.WriteString(fmt.Sprintf("Issue: %s (%s:%d)\n", v.Title, v.File, v.Line))
	sb.WriteString(fmt.Sprintf("Rule: %s\n", tmpl.Rule))
	if tmpl.Risk != "" {
		sb.WriteString(fmt.Sprintf("Risk: %s\n", tmpl.Risk))
	}
	if tmpl.Standard != "" {
		sb.WriteString(fmt.Sprintf("Standard: %s\n", tmpl.Standard))
	}
	sb.WriteString("\n")

	sb.WriteString("Suggested Fix:\n")
	sb.WriteString(fixCmd + "\n\n")

	if validateCmd != "" {
		sb.WriteString("Validation:\n")
		sb.WriteString(validateCmd + "\n\n")
	}
	if rollbackCmd != "" {
		sb.WriteString("Rollback:\n")
		sb.WriteString(rollbackCmd + "\n")
	}

	return sb.String(), nil
}

func renderString(name, tmplStr string, v Vulnerability) (string, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(tmplStr)
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse template %s", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		return "", errors.Wrapf(err, "failed to execute template %s", name)
	}
	return strings.TrimSpace(buf.String()), nil
}
