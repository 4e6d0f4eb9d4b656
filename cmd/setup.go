package cmd

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/user/vulndash/pkg/adk"
	"github.com/user/vulndash/pkg/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := bufio.NewScanner(cmd.InOrStdin())
		out := cmd.OutOrStdout()
		ask := func(prompt string) string {
			fmt.Fprint(out, prompt)
			in.Scan()
			return strings.TrimSpace(in.Text())
		}

		cfg, path, err := loadSavedConfig()
		if err != nil {
			return err
		}

		fmt.Fprintln(out, "Welcome to the vulndash setup wizard")
		fmt.Fprintln(out, "------------------------------------")

		fmt.Fprintln(out, "Step 1: Report host (leave the host empty to skip)")
		if host := ask("Host > "); host != "" {
			cfg.SSH.Host = host
			cfg.SSH.Username = ask("User > ")
			cfg.SSH.PrivateKeyFile = ask("Private key file (e.g. ~/.ssh/id_ed25519) > ")
			cfg.SSH.PrivateKey = ""
			if p := ask("Remote path [" + cfg.SSH.RemotePath + "] > "); p != "" {
				cfg.SSH.RemotePath = p
			}
			cfg.Server.Source = "sftp"
		}

		fmt.Fprintln(out, "\nStep 2: Choose your AI Provider for the triage assistant")
		for i, name := range adk.Providers {
			note := ""
			if name != "gemini" {
				note = " (model listing only)"
			}
			fmt.Fprintf(out, "%d. %s%s\n", i+1, name, note)
		}

		provider, err := chooseProvider(ask("Enter number or name (empty to skip) > "))
		if err != nil {
			return err
		}

		if provider != "" {
			apiKey := ask(fmt.Sprintf("\nStep 3: Enter API Key for %s\n> ", provider))
			if apiKey == "" {
				return errors.New("API key cannot be empty")
			}

			fmt.Fprintln(out, "\nStep 4: Validating key and fetching available models...")
			model, err := pickModel(cmd, provider, apiKey, ask)
			if err != nil {
				return err
			}
			cfg.SelectedProvider = provider
			cfg.SelectedModel = model
			cfg.SetAPIKey(provider, apiKey)
		}

		if err := config.SaveConfig(path, cfg); err != nil {
			return errors.Wrap(err, "save config")
		}

		fmt.Fprintln(out, "------------------------------------")
		fmt.Fprintln(out, "Setup Complete!")
		if cfg.SSH.Host != "" {
			fmt.Fprintf(out, "Report host: %s@%s:%s\n", cfg.SSH.Username, cfg.SSH.Host, cfg.SSH.RemotePath)
		}
		if provider != "" {
			fmt.Fprintf(out, "Provider:    %s\n", cfg.SelectedProvider)
			fmt.Fprintf(out, "Model:       %s\n", cfg.SelectedModel)
		}
		fmt.Fprintln(out, "You can now run 'vulndash serve' or 'vulndash interactive'")
		return nil
	},
}

func chooseProvider(answer string) (string, error) {
	answer = strings.ToLower(answer)
	if answer == "" {
		return "", nil
	}
	if idx, err := strconv.Atoi(answer); err == nil && idx >= 1 && idx <= len(adk.Providers) {
		return adk.Providers[idx-1], nil
	}
	for _, name := range adk.Providers {
		if name == answer {
			return name, nil
		}
	}
	return "", errors.Newf("invalid choice %q", answer)
}

func pickModel(cmd *cobra.Command, provider, apiKey string, ask func(string) string) (string, error) {
	out := cmd.OutOrStdout()
	p, err := adk.NewProvider(cmd.Context(), provider, apiKey, "")
	if err != nil {
		return "", errors.Wrap(err, "initialize provider")
	}
	if closer, ok := p.(interface{ Close() }); ok {
		defer closer.Close()
	}

	models, err := p.ListModels(cmd.Context())
	if err != nil || len(models) == 0 {
		fmt.Fprintf(out, "Warning: Could not fetch models from API: %v\n", err)
		return ask("Please enter model name manually (e.g., 'gemini-1.5-flash'):\n> "), nil
	}

	fmt.Fprintf(out, "Successfully retrieved %d models.\n", len(models))
	for i, m := range models {
		fmt.Fprintf(out, "%d. %s\n", i+1, m)
	}
	idx, err := strconv.Atoi(ask("Select Model (number) > "))
	if err != nil || idx < 1 || idx > len(models) {
		fmt.Fprintln(out, "Invalid selection. Using first available model.")
		return models[0], nil
	}
	return models[idx-1], nil
}

func init() {
	configCmd.AddCommand(setupCmd)
}
