package cmd

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/user/vulndash/pkg/config"
	"github.com/user/vulndash/pkg/logger"
	"github.com/user/vulndash/pkg/remote"
)

var rootCmd = &cobra.Command{
	Use:   "vulndash",
	Short: "Security findings dashboard for static analysis reports",
	Long: `vulndash collects the CSV reports that scanners such as Semgrep leave on a
build host, turns them into vulnerabilities and serves them to the dashboard.
It can also be used from the terminal to inspect, export and compare reports.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Setup(viper.GetString("log-level"), viper.GetBool("debug"))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initViper)

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: error, warn, info, debug, trace")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/"+config.DirName+"/"+config.FileName+")")
	rootCmd.PersistentFlags().String("source", "", "Report source: mock, sftp or dir")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().Float64("mock-latency", 0, "Scale of the simulated delays of the mock source (1 = realistic)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("server.source", rootCmd.PersistentFlags().Lookup("source"))
	viper.BindPFlag("mock-latency", rootCmd.PersistentFlags().Lookup("mock-latency"))
}

func initViper() {
	viper.SetEnvPrefix("VULNDASH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func configPath() (string, error) {
	if p := viper.GetString("config"); p != "" {
		return p, nil
	}
	return config.GetConfigPath()
}

// loadConfig reads the config file and lets flags and VULNDASH_* variables
// override the server settings.
func loadConfig() (*config.Config, string, error) {
	path, err := configPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, "", err
	}

	viper.SetDefault("server.address", cfg.Server.Address)
	viper.SetDefault("server.port", cfg.Server.Port)
	viper.SetDefault("server.data-dir", cfg.Server.DataDir)
	viper.SetDefault("server.seed", cfg.Server.Seed)
	viper.SetDefault("server.quoted", cfg.Server.QuotedFields)
	viper.SetDefault("server.templates", cfg.Server.TemplatesDir)

	cfg.Server.Address = viper.GetString("server.address")
	cfg.Server.Port = viper.GetInt("server.port")
	cfg.Server.DataDir = viper.GetString("server.data-dir")
	cfg.Server.Seed = viper.GetBool("server.seed")
	cfg.Server.QuotedFields = viper.GetBool("server.quoted")
	cfg.Server.TemplatesDir = viper.GetString("server.templates")
	if s := viper.GetString("server.source"); s != "" {
		cfg.Server.Source = s
	}
	if cfg.Server.Source == "" {
		cfg.Server.Source = remote.KindMock
	}

	log.Debug().Str("path", path).Str("source", cfg.Server.Source).Msg("loaded config")
	return cfg, path, nil
}

// loadSavedConfig reads the config file as stored, without flag or
// environment overrides, for commands that write it back.
func loadSavedConfig() (*config.Config, string, error) {
	path, err := configPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

var errNoDataDir = errors.New("the dir source needs a data directory, set server.data_dir or --data-dir")

// checkSource rejects source settings that cannot be served safely.
func checkSource(cfg *config.Config) error {
	if cfg.Server.Source == remote.KindDir && cfg.Server.DataDir == "" {
		return errNoDataDir
	}
	return nil
}

// sourceConfig adapts a connection config to the configured source kind: the
// dir source always reads from the data directory, whatever path was requested.
func sourceConfig(cfg *config.Config, rc remote.Config) remote.Config {
	if cfg.Server.Source == remote.KindDir {
		rc.RemotePath = cfg.Server.DataDir
	}
	if rc.KnownHostsFile == "" {
		rc.KnownHostsFile = cfg.SSH.KnownHostsFile
	}
	if rc.Timeout == 0 {
		rc.Timeout = cfg.SSH.Timeout
	}
	return rc
}

func newSource(cfg *config.Config, rc remote.Config) (remote.Source, error) {
	if err := checkSource(cfg); err != nil {
		return nil, err
	}
	src, err := remote.New(cfg.Server.Source, sourceConfig(cfg, rc), nil)
	if err != nil {
		return nil, err
	}
	if m, ok := src.(*remote.MockSource); ok {
		m.Latency = viper.GetFloat64("mock-latency")
	}
	return src, nil
}

// configuredSource opens the source described by the ssh section of the config.
func configuredSource(cfg *config.Config) (remote.Source, error) {
	rc, err := cfg.SSH.Remote()
	if err != nil {
		return nil, err
	}
	return newSource(cfg, rc)
}
