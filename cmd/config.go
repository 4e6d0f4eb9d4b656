package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/user/vulndash/pkg/adk"
	"github.com/user/vulndash/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration (report host, providers, models, keys)",
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active configuration with secrets redacted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		redacted := *cfg
		redacted.Providers = make(map[string]config.ProviderConfig, len(cfg.Providers))
		for name, p := range cfg.Providers {
			redacted.Providers[name] = config.ProviderConfig{APIKey: redact(p.APIKey)}
		}
		redacted.SSH.PrivateKey = redact(cfg.SSH.PrivateKey)

		data, err := yaml.Marshal(&redacted)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", path, data)
		return nil
	},
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "<redacted>"
}

var setSSHCmd = &cobra.Command{
	Use:   "set-ssh",
	Short: "Set the report host connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadSavedConfig()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("host") {
			cfg.SSH.Host, _ = flags.GetString("host")
		}
		if flags.Changed("port") {
			cfg.SSH.Port, _ = flags.GetInt("port")
		}
		if flags.Changed("user") {
			cfg.SSH.Username, _ = flags.GetString("user")
		}
		if flags.Changed("key-file") {
			cfg.SSH.PrivateKeyFile, _ = flags.GetString("key-file")
			cfg.SSH.PrivateKey = ""
		}
		if flags.Changed("remote-path") {
			cfg.SSH.RemotePath, _ = flags.GetString("remote-path")
		}
		if flags.Changed("known-hosts") {
			cfg.SSH.KnownHostsFile, _ = flags.GetString("known-hosts")
		}
		if flags.Changed("timeout") {
			cfg.SSH.Timeout, _ = flags.GetDuration("timeout")
		}

		rc, err := cfg.SSH.Remote()
		if err != nil {
			return err
		}
		if err := rc.Validate(); err != nil {
			return errors.Wrap(err, "incomplete ssh configuration")
		}

		if err := config.SaveConfig(path, cfg); err != nil {
			return errors.Wrap(err, "save config")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report host saved: %s@%s:%s\n", cfg.SSH.Username, rc.Addr(), cfg.SSH.RemotePath)
		return nil
	},
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Manually set API key for a provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")
		key, _ := cmd.Flags().GetString("key")

		if provider == "" || key == "" {
			return errors.New("--provider and --key are required")
		}

		cfg, path, err := loadSavedConfig()
		if err != nil {
			return err
		}

		cfg.SetAPIKey(strings.ToLower(provider), key)
		if err := config.SaveConfig(path, cfg); err != nil {
			return errors.Wrap(err, "save config")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "API key saved for provider: %s\n", provider)
		return nil
	},
}

var setModelCmd = &cobra.Command{
	Use:   "set-model",
	Short: "Manually set the active provider and model",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")

		cfg, path, err := loadSavedConfig()
		if err != nil {
			return err
		}

		if provider != "" {
			cfg.SelectedProvider = strings.ToLower(provider)
		}
		if model != "" {
			cfg.SelectedModel = model
		}

		if err := config.SaveConfig(path, cfg); err != nil {
			return errors.Wrap(err, "save config")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active configuration updated: Provider=%s, Model=%s\n", cfg.SelectedProvider, cfg.SelectedModel)
		return nil
	},
}

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List available models from the configured provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		provider := cfg.SelectedProvider
		if provider == "" {
			return errors.New("no provider selected, run 'vulndash config setup'")
		}
		apiKey := cfg.GetAPIKey(provider)
		if apiKey == "" {
			return errors.Newf("no API key found for %s", provider)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		p, err := adk.NewProvider(ctx, provider, apiKey, "")
		if err != nil {
			return errors.Wrap(err, "initialize provider")
		}
		if closer, ok := p.(interface{ Close() }); ok {
			defer closer.Close()
		}

		models, err := p.ListModels(ctx)
		if err != nil {
			return errors.Wrap(err, "fetch models")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Available Models (%s):\n", provider)
		for _, m := range models {
			mark := " "
			if m == cfg.SelectedModel {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %s\n", mark, m)
		}
		return nil
	},
}

func init() {
	setSSHCmd.Flags().String("host", "", "Report host name or IP")
	setSSHCmd.Flags().Int("port", 22, "SSH port")
	setSSHCmd.Flags().StringP("user", "u", "", "SSH user")
	setSSHCmd.Flags().StringP("key-file", "i", "", "Private key file")
	setSSHCmd.Flags().String("remote-path", "", "Directory holding the CSV reports")
	setSSHCmd.Flags().String("known-hosts", "", "known_hosts file used to verify the host key")
	setSSHCmd.Flags().Duration("timeout", 0, "Connection timeout")

	setKeyCmd.Flags().StringP("provider", "p", "", "Provider (gemini, openai, anthropic)")
	setKeyCmd.Flags().StringP("key", "k", "", "API Key")

	setModelCmd.Flags().StringP("provider", "p", "", "Provider (gemini, openai, anthropic)")
	setModelCmd.Flags().StringP("model", "m", "", "Model name")

	configCmd.AddCommand(showConfigCmd)
	configCmd.AddCommand(setSSHCmd)
	configCmd.AddCommand(setKeyCmd)
	configCmd.AddCommand(setModelCmd)
	configCmd.AddCommand(listModelsCmd)
	rootCmd.AddCommand(configCmd)
}
