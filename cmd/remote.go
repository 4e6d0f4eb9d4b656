package cmd

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/user/vulndash/pkg/engine"
	"github.com/user/vulndash/pkg/remote"
)

func init() {
	remoteLoadCmd.Flags().StringP("format", "f", "table", "output format: table, json, csv or sarif (re-ingest csv output with --quoted)")
	remoteLoadCmd.Flags().Bool("quoted", false, "honor double-quoted CSV fields")
	remoteLoadCmd.Flags().String("save", "", "save the loaded scans as a snapshot file")
	remoteLoadCmd.Flags().String("branch", "main", "branch recorded on the scans")
	remoteLoadCmd.Flags().Int("parallel", 4, "maximum concurrent downloads")

	remoteCmd.AddCommand(remoteTestCmd)
	remoteCmd.AddCommand(remoteListCmd)
	remoteCmd.AddCommand(remoteLoadCmd)
	rootCmd.AddCommand(remoteCmd)
}

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Work with the configured report host",
}

var remoteTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the connection to the report host",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		src, err := configuredSource(cfg)
		if err != nil {
			return err
		}

		probe, err := src.Probe(cmd.Context())
		if err != nil {
			return errors.Wrap(err, remote.Describe(err))
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, probe.Message)
		fmt.Fprintf(out, "  duration:    %dms\n", probe.DurationMS)
		fmt.Fprintf(out, "  total files: %d\n", probe.TotalFiles)
		fmt.Fprintf(out, "  csv files:   %d\n", probe.CSVFiles)
		for _, f := range probe.SampleFiles {
			fmt.Fprintf(out, "  - %s\n", f)
		}
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List CSV reports on the report host",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		src, err := configuredSource(cfg)
		if err != nil {
			return err
		}

		files, err := src.List(cmd.Context())
		if err != nil {
			return errors.Wrap(err, remote.Describe(err))
		}
		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	},
}

var remoteLoadCmd = &cobra.Command{
	Use:   "load <file>...",
	Short: "Download reports and print their vulnerabilities",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		src, err := configuredSource(cfg)
		if err != nil {
			return err
		}

		parallel, _ := cmd.Flags().GetInt("parallel")
		contents, err := remote.FetchAll(cmd.Context(), src, args, parallel)
		if err != nil {
			return errors.Wrap(err, remote.Describe(err))
		}

		quoted, _ := cmd.Flags().GetBool("quoted")
		branch, _ := cmd.Flags().GetString("branch")
		pipeline := newPipeline(quoted || cfg.Server.QuotedFields)

		store := engine.NewStore()
		for i, content := range contents {
			vulns, stats := pipeline.IngestWithStats(content)
			store.AddScan(engine.NewScanResult(vulns, branch, "remote-csv", time.Now()))
			log.Info().Str("file", args[i]).Int("vulnerabilities", stats.Valid).Int("dropped", stats.Dropped).Msg("loaded report")
		}

		if save, _ := cmd.Flags().GetString("save"); save != "" {
			if err := store.SaveSnapshot(afero.NewOsFs(), save); err != nil {
				return err
			}
			log.Info().Str("snapshot", save).Msg("saved snapshot")
		}

		format, _ := cmd.Flags().GetString("format")
		return writeVulns(cmd, store.Vulnerabilities(), format)
	},
}
