package cmd

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/user/vulndash/pkg/adk"
	"github.com/user/vulndash/pkg/engine"
	"github.com/user/vulndash/pkg/logger"
	"github.com/user/vulndash/pkg/wrappers"
)

func init() {
	interactiveCmd.Flags().String("snapshot", "", "snapshot file to start from (default: the demo scan)")
	interactiveCmd.Flags().String("templates", "", "directory with remediation templates (default: server.templates_dir)")
	interactiveCmd.Flags().Int("max-steps", adk.DefaultMaxSteps, "maximum tool calls per question")
	rootCmd.AddCommand(interactiveCmd)
}

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Start the triage assistant",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		providerName := cfg.SelectedProvider
		if providerName == "" {
			providerName = "gemini"
		}

		apiKey := cfg.GetAPIKey(providerName)
		if apiKey == "" && providerName == "gemini" {
			apiKey = os.Getenv("GOOGLE_API_KEY")
		}
		if apiKey == "" {
			return errors.New("API key not found, run 'vulndash config setup' to configure your keys")
		}

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Connecting to %s (Model: %s)...\n", providerName, cfg.SelectedModel)

		provider, err := adk.NewProvider(ctx, providerName, apiKey, cfg.SelectedModel)
		if err != nil {
			return errors.Wrap(err, "create AI provider")
		}
		if closer, ok := provider.(interface{ Close() }); ok {
			defer closer.Close()
		}

		fs := afero.NewOsFs()
		store := engine.NewStore()
		if snap, _ := cmd.Flags().GetString("snapshot"); snap != "" {
			if err := store.LoadSnapshot(fs, snap); err != nil {
				return err
			}
		} else {
			store.AddScan(engine.SeedScan(time.Now()))
		}

		remediationEng := engine.NewRemediationEngine()
		dir, _ := cmd.Flags().GetString("templates")
		if dir == "" {
			dir = cfg.Server.TemplatesDir
		}
		if dir != "" {
			if err := remediationEng.LoadTemplates(fs, dir); err != nil {
				log.Warn().Err(err).Msg("failed to load remediation templates")
			}
		}

		agent := adk.NewAgent(provider)
		agent.MaxSteps, _ = cmd.Flags().GetInt("max-steps")

		agent.RegisterTool(&wrappers.ShowVulnerabilitiesWrapper{Store: store})
		agent.RegisterTool(&wrappers.RemediationWrapper{Engine: remediationEng, Store: store})
		agent.RegisterTool(&wrappers.SaveSnapshotWrapper{Store: store, Fs: fs})
		agent.RegisterTool(&wrappers.DiffSnapshotWrapper{Store: store, Fs: fs})
		agent.RegisterTool(&wrappers.GitleaksWrapper{Store: store})

		src, err := configuredSource(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("report host not available, remote tools disabled")
		} else {
			agent.RegisterTool(&wrappers.ListRemoteFilesWrapper{Source: src})
			agent.RegisterTool(&wrappers.LoadRemoteFileWrapper{
				Source:   src,
				Store:    store,
				Pipeline: newPipeline(cfg.Server.QuotedFields),
			})
		}

		c := store.Counts()
		agent.SetSystemPrompt(adk.GetSystemPrompt(
			fmt.Sprintf("%d scans loaded with %d vulnerabilities (critical=%d high=%d medium=%d low=%d)",
				len(store.Scans()), c.Total, c.Critical, c.High, c.Medium, c.Low),
			"report source: "+cfg.Server.Source,
		))

		scanner := bufio.NewScanner(cmd.InOrStdin())
		fmt.Fprintln(out, "\n---------------------------------------------------------")
		fmt.Fprintln(out, "vulndash triage assistant ready.")
		fmt.Fprintln(out, "Example: 'Which critical findings are on main?'")
		fmt.Fprintln(out, "Example: 'Load the latest semgrep report and compare it with the baseline'")
		fmt.Fprintln(out, "Type 'quit' or 'exit' to stop.")
		fmt.Fprintln(out, "---------------------------------------------------------")

		for {
			fmt.Fprint(out, "\n> ")
			if !scanner.Scan() {
				break
			}
			input := scanner.Text()
			if input == "quit" || input == "exit" {
				break
			}
			if input == "" {
				continue
			}

			seen := len(agent.History())
			fmt.Fprint(out, "Agent thinking... ")
			resp, err := agent.Chat(ctx, input, func(msg string) {
				fmt.Fprintf(out, "\r\033[K[Progress]: %s\nAgent thinking... ", msg)
			})
			fmt.Fprint(out, "\r\033[K")

			if logger.DebugEnabled {
				for _, m := range agent.History()[seen:] {
					if m.Role == "function" {
						fmt.Fprintf(out, "[debug] tool result:\n%s\n", m.Content)
					}
				}
			}
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			} else {
				fmt.Fprintf(out, "\n[Agent]: %s\n", resp)
			}
		}
		return scanner.Err()
	},
}
