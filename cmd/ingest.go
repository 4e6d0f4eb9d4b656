package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/user/vulndash/pkg/engine"
	"github.com/user/vulndash/pkg/report"
)

func init() {
	ingestCmd.Flags().StringP("format", "f", "table", "output format: table, json, csv or sarif (re-ingest csv output with --quoted)")
	ingestCmd.Flags().Bool("stats", false, "print how many rows were kept and dropped")
	ingestCmd.Flags().Bool("quoted", false, "honor double-quoted CSV fields")
	ingestCmd.Flags().String("save", "", "save the result as a snapshot file")
	ingestCmd.Flags().String("branch", "main", "branch recorded on the scan")
	ingestCmd.Flags().String("commit", "local-csv", "commit recorded on the scan")
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|->",
	Short: "Parse a CSV report and print the vulnerabilities",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		quoted, _ := cmd.Flags().GetBool("quoted")
		vulns, stats := newPipeline(quoted).IngestWithStats(raw)
		log.Debug().Int("rows", stats.Rows).Int("valid", stats.Valid).Int("dropped", stats.Dropped).Msg("ingested")

		if save, _ := cmd.Flags().GetString("save"); save != "" {
			branch, _ := cmd.Flags().GetString("branch")
			commit, _ := cmd.Flags().GetString("commit")
			store := engine.NewStore()
			store.AddScan(engine.NewScanResult(vulns, branch, commit, time.Now()))
			if err := store.SaveSnapshot(afero.NewOsFs(), save); err != nil {
				return err
			}
		}

		format, _ := cmd.Flags().GetString("format")
		if err := writeVulns(cmd, vulns, format); err != nil {
			return err
		}

		if withStats, _ := cmd.Flags().GetBool("stats"); withStats {
			fmt.Fprintf(cmd.ErrOrStderr(), "rows: %d, valid: %d, dropped: %d\n", stats.Rows, stats.Valid, stats.Dropped)
		}
		return nil
	},
}

func readInput(cmd *cobra.Command, name string) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", errors.Wrap(err, "read stdin")
		}
		return string(data), nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", name)
	}
	return string(data), nil
}

func colorProfile(cmd *cobra.Command) termenv.Profile {
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		return termenv.Ascii
	}
	if f, ok := cmd.OutOrStdout().(*os.File); !ok || f != os.Stdout {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

func writeVulns(cmd *cobra.Command, vulns []engine.Vulnerability, format string) error {
	w := cmd.OutOrStdout()
	switch format {
	case "table", "":
		profile := colorProfile(cmd)
		if err := report.WriteTable(w, vulns, profile); err != nil {
			return err
		}
		return report.WriteSummary(w, engine.CountBySeverity(vulns), profile)
	case "json":
		return report.WriteJSON(w, vulns)
	case "csv":
		return report.WriteCSV(w, vulns)
	case "sarif":
		return report.WriteSARIF(w, vulns)
	default:
		return errors.Newf("unknown format %q", format)
	}
}
