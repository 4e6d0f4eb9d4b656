package cmd

import (
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/user/vulndash/pkg/engine"
	"github.com/user/vulndash/pkg/ingest"
	"github.com/user/vulndash/pkg/logger"
	"github.com/user/vulndash/pkg/remote"
	"github.com/user/vulndash/pkg/server"
)

func init() {
	serveCmd.Flags().String("address", "127.0.0.1", "address to listen on")
	serveCmd.Flags().Int("port", 8080, "port to listen on")
	serveCmd.Flags().String("data-dir", "", "directory read by the dir source")
	serveCmd.Flags().Bool("seed", true, "start with the demo scan")
	serveCmd.Flags().Bool("quoted", false, "honor double-quoted CSV fields")
	serveCmd.Flags().String("templates", "", "directory with remediation templates")
	serveCmd.Flags().String("snapshot", "", "snapshot file to restore on start")
	serveCmd.Flags().Bool("json-logs", false, "log JSON lines instead of console output")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API",
	PreRun: func(cmd *cobra.Command, args []string) {
		viper.BindPFlag("server.address", cmd.Flags().Lookup("address"))
		viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
		viper.BindPFlag("server.data-dir", cmd.Flags().Lookup("data-dir"))
		viper.BindPFlag("server.seed", cmd.Flags().Lookup("seed"))
		viper.BindPFlag("server.quoted", cmd.Flags().Lookup("quoted"))
		viper.BindPFlag("server.templates", cmd.Flags().Lookup("templates"))

		if json, _ := cmd.Flags().GetBool("json-logs"); json {
			logger.StandardLogger(os.Stderr)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return errors.Wrap(err, "could not load configuration")
		}
		if err := checkSource(cfg); err != nil {
			return err
		}

		store := engine.NewStore()
		if snap, _ := cmd.Flags().GetString("snapshot"); snap != "" {
			if err := store.LoadSnapshot(afero.NewOsFs(), snap); err != nil {
				return err
			}
			log.Info().Str("snapshot", snap).Int("scans", len(store.Scans())).Msg("restored snapshot")
		} else if cfg.Server.Seed {
			store.AddScan(engine.SeedScan(time.Now()))
		}

		opts := []server.Option{
			server.WithPipeline(newPipeline(cfg.Server.QuotedFields)),
			server.WithSourceFactory(func(rc remote.Config) (remote.Source, error) {
				return newSource(cfg, rc)
			}),
		}
		if cfg.Server.TemplatesDir != "" {
			rem, err := loadRemediation(cfg.Server.TemplatesDir)
			if err != nil {
				return err
			}
			opts = append(opts, server.WithRemediation(rem))
		}

		if cfg.Server.Source == remote.KindSFTP && cfg.SSH.KnownHostsFile == "" {
			log.Warn().Msg("ssh host keys are not verified, set ssh.known_hosts_file in the config")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr := net.JoinHostPort(cfg.Server.Address, strconv.Itoa(cfg.Server.Port))
		log.Info().Str("source", cfg.Server.Source).Msg("serving vulnerability dashboard api")
		return server.New(store, opts...).Serve(ctx, addr)
	},
}

func newPipeline(quoted bool) *ingest.Pipeline {
	if quoted {
		return ingest.New(ingest.WithQuotedFields())
	}
	return ingest.New()
}

func loadRemediation(dir string) (*engine.RemediationEngine, error) {
	rem := engine.NewRemediationEngine()
	if err := rem.LoadTemplates(afero.NewOsFs(), dir); err != nil {
		return nil, errors.Wrap(err, "load remediation templates")
	}
	log.Info().Int("templates", len(rem.Templates)).Str("dir", dir).Msg("loaded remediation templates")
	return rem, nil
}
