package wrappers

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/user/vulndash/pkg/engine"
)

// SaveSnapshotWrapper implements the Tool interface for saving the current findings
type SaveSnapshotWrapper struct {
	Store *engine.Store
	Fs    afero.Fs
}

func (s *SaveSnapshotWrapper) Name() string {
	return "SaveSnapshot"
}

func (s *SaveSnapshotWrapper) Description() string {
	return "Saves the current security findings to a snapshot file for future comparison."
}

func (s *SaveSnapshotWrapper) Schema() map[string]interface{} {
	return snapshotSchema("Optional filename for the snapshot (default: " + engine.DefaultSnapshotPath + ")")
}

func (s *SaveSnapshotWrapper) Execute(ctx context.Context, args map[string]interface{}, progress func(string)) (string, error) {
	if s.Store == nil {
		return "Error: vulnerability store not initialized.", nil
	}

	filename := snapshotFile(args)
	if err := s.Store.SaveSnapshot(fsOrOS(s.Fs), filename); err != nil {
		return fmt.Sprintf("Error saving snapshot: %v", err), nil
	}

	return fmt.Sprintf("Successfully saved %d findings to snapshot '%s'.", len(s.Store.Vulnerabilities()), filename), nil
}

// DiffSnapshotWrapper implements the Tool interface for comparing current findings with a baseline
type DiffSnapshotWrapper struct {
	Store *engine.Store
	Fs    afero.Fs
}

func (d *DiffSnapshotWrapper) Name() string {
	return "CompareWithBaseline"
}

func (d *DiffSnapshotWrapper) Description() string {
	return "Compares the current security findings against a previously saved snapshot to identify New, Fixed, and Unchanged risks."
}

func (d *DiffSnapshotWrapper) Schema() map[string]interface{} {
	return snapshotSchema("Optional filename of the baseline snapshot to compare against (default: " + engine.DefaultSnapshotPath + ")")
}

func (d *DiffSnapshotWrapper) Execute(ctx context.Context, args map[string]interface{}, progress func(string)) (string, error) {
	if d.Store == nil {
		return "Error: vulnerability store not initialized.", nil
	}

	filename := snapshotFile(args)
	baseline := engine.NewStore()
	if err := baseline.LoadSnapshot(fsOrOS(d.Fs), filename); err != nil {
		return fmt.Sprintf("Error loading baseline snapshot '%s': %v. Have you saved a snapshot before?", filename, err), nil
	}

	return FormatDiff(d.Store.CompareSnapshot(baseline), filename, 10), nil
}

// FormatDiff renders a snapshot comparison, listing at most maxUnchanged unchanged findings.
func FormatDiff(diff engine.SnapshotDiff, baseline string, maxUnchanged int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Snapshot Comparison (vs %s):\n", baseline))
	sb.WriteString("--------------------------------------------------\n")

	sb.WriteString(fmt.Sprintf("NEW RISKS: %d\n", len(diff.New)))
	for _, v := range diff.New {
		sb.WriteString(diffLine("+", v))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("FIXED RISKS: %d\n", len(diff.Fixed)))
	for _, v := range diff.Fixed {
		sb.WriteString(diffLine("-", v))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("UNCHANGED RISKS: %d\n", len(diff.Unchanged)))
	for i, v := range diff.Unchanged {
		if maxUnchanged > 0 && i >= maxUnchanged {
			sb.WriteString(fmt.Sprintf("  ... and %d more.\n", len(diff.Unchanged)-maxUnchanged))
			break
		}
		sb.WriteString(diffLine("=", v))
	}

	return sb.String()
}

func diffLine(mark string, v engine.Vulnerability) string {
	return fmt.Sprintf("  [%s] [%s] %s (%s:%d) - %s\n", mark, strings.ToUpper(v.Severity.String()), v.Title, v.File, v.Line, v.Rule)
}

func snapshotSchema(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"filename": map[string]interface{}{
				"type":        "string",
				"description": desc,
			},
		},
	}
}

func snapshotFile(args map[string]interface{}) string {
	if f := stringArg(args, "filename"); f != "" {
		return f
	}
	return engine.DefaultSnapshotPath
}

func fsOrOS(fs afero.Fs) afero.Fs {
	if fs == nil {
		return afero.NewOsFs()
	}
	return fs
}
