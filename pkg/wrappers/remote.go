package wrappers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/user/vulndash/pkg/engine"
	"github.com/user/vulndash/pkg/ingest"
	"github.com/user/vulndash/pkg/remote"
)

// maxParallelDownloads bounds concurrent transfers from the report host.
const maxParallelDownloads = 4

// ListRemoteFilesWrapper implements the Tool interface for listing reports on the report host
type ListRemoteFilesWrapper struct {
	Source remote.Source
}

func (l *ListRemoteFilesWrapper) Name() string {
	return "ListRemoteFiles"
}

func (l *ListRemoteFilesWrapper) Description() string {
	return "Lists the CSV scanner reports available on the configured report host."
}

func (l *ListRemoteFilesWrapper) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (l *ListRemoteFilesWrapper) Execute(ctx context.Context, args map[string]interface{}, progress func(string)) (string, error) {
	if l.Source == nil {
		return "Error: no report source configured. Run 'vulndash config set-ssh' first.", nil
	}
	if progress != nil {
		progress("Listing remote reports...")
	}

	files, err := l.Source.List(ctx)
	if err != nil {
		return fmt.Sprintf("Error listing remote files: %s (%v)", remote.Describe(err), err), nil
	}
	if len(files) == 0 {
		return "No CSV reports found on the report host.", nil
	}
	return fmt.Sprintf("%d CSV reports available:\n- %s", len(files), strings.Join(files, "\n- ")), nil
}

// LoadRemoteFileWrapper implements the Tool interface for downloading reports into the dashboard
type LoadRemoteFileWrapper struct {
	Source   remote.Source
	Store    *engine.Store
	Pipeline *ingest.Pipeline
	Now      func() time.Time
}

func (l *LoadRemoteFileWrapper) Name() string {
	return "LoadRemoteFile"
}

func (l *LoadRemoteFileWrapper) Description() string {
	return "Downloads one or more CSV reports from the report host, parses them and adds each one to the dashboard as a new scan."
}

func (l *LoadRemoteFileWrapper) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"files": map[string]interface{}{
				"type":        "array",
				"description": "Names of the CSV files to load, as returned by ListRemoteFiles",
				"items":       map[string]interface{}{"type": "string"},
			},
			"branch": map[string]interface{}{
				"type":        "string",
				"description": "Branch to record the scans under (default main)",
			},
		},
		"required": []string{"files"},
	}
}

func (l *LoadRemoteFileWrapper) Execute(ctx context.Context, args map[string]interface{}, progress func(string)) (string, error) {
	if l.Source == nil || l.Store == nil {
		return "Error: no report source configured. Run 'vulndash config set-ssh' first.", nil
	}

	files := stringsArg(args, "files")
	if len(files) == 0 {
		files = stringsArg(args, "filename")
	}
	if len(files) == 0 {
		return "Error: files argument is required. Use ListRemoteFiles to see what is available.", nil
	}
	branch := stringArg(args, "branch")
	if branch == "" {
		branch = "main"
	}

	if progress != nil {
		progress(fmt.Sprintf("Downloading %d report(s)...", len(files)))
	}
	contents, err := remote.FetchAll(ctx, l.Source, files, maxParallelDownloads)
	if err != nil {
		return fmt.Sprintf("Error downloading reports: %s (%v)", remote.Describe(err), err), nil
	}

	pipeline := l.Pipeline
	if pipeline == nil {
		pipeline = ingest.New()
	}
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}

	var sb strings.Builder
	total := 0
	for i, content := range contents {
		vulns, stats := pipeline.IngestWithStats(content)
		scan := engine.NewScanResult(vulns, branch, "remote-csv", now())
		l.Store.AddScan(scan)
		total += len(vulns)
		sb.WriteString(fmt.Sprintf("- %s: %d vulnerabilities (critical=%d high=%d medium=%d low=%d), %d rows dropped\n",
			files[i], scan.Total, scan.Critical, scan.High, scan.Medium, scan.Low, stats.Dropped))
	}

	return fmt.Sprintf("Loaded %d report(s) with %d vulnerabilities:\n%s", len(files), total, sb.String()), nil
}
