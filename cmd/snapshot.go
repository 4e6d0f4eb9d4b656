package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/user/vulndash/pkg/engine"
	"github.com/user/vulndash/pkg/report"
	"github.com/user/vulndash/pkg/wrappers"
)

func init() {
	snapshotDiffCmd.Flags().StringP("format", "f", "text", "output format: text or json")
	snapshotShowCmd.Flags().StringP("format", "f", "table", "output format: table, json, csv or sarif")

	snapshotCmd.AddCommand(snapshotDiffCmd)
	snapshotCmd.AddCommand(snapshotShowCmd)
	rootCmd.AddCommand(snapshotCmd)
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect and compare saved snapshots",
}

var snapshotDiffCmd = &cobra.Command{
	Use:   "diff <baseline> <current>",
	Short: "Show new, fixed and unchanged vulnerabilities between two snapshots",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs := afero.NewOsFs()
		baseline := engine.NewStore()
		if err := baseline.LoadSnapshot(fs, args[0]); err != nil {
			return err
		}
		current := engine.NewStore()
		if err := current.LoadSnapshot(fs, args[1]); err != nil {
			return err
		}

		diff := current.CompareSnapshot(baseline)
		if format, _ := cmd.Flags().GetString("format"); format == "json" {
			return report.WriteJSON(cmd.OutOrStdout(), diff)
		}
		_, err := fmt.Fprint(cmd.OutOrStdout(), wrappers.FormatDiff(diff, args[0], 0))
		return err
	},
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show <snapshot>",
	Short: "Print the vulnerabilities stored in a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := engine.NewStore()
		if err := store.LoadSnapshot(afero.NewOsFs(), args[0]); err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		return writeVulns(cmd, store.Vulnerabilities(), format)
	},
}
