package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gagyebu/internal/backend"
	"gagyebu/internal/cli"
	"gagyebu/internal/config"
	"gagyebu/internal/log"
)

// app carries what PersistentPreRunE prepared for the subcommands.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var envFile string

	root := &cobra.Command{
		Use:   "gagyebu-cli",
		Short: "Household ledger maintenance tool",
		Long: `gagyebu-cli works directly on the configured ledger backend.

It reads the same environment variables as the server (DATA_BACKEND,
SQLITE_DB_PATH, DUPLICATE_*), optionally from an env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.LoadEnvFile(envFile); err != nil {
				return err
			}
			cfg, err := cli.LoadConfig(nil)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cli.SetupLogger(cfg, log.ComponentCLI, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file to load before reading configuration")

	root.AddCommand(dupcheckCmd(a))
	root.AddCommand(exportCmd(a))
	root.AddCommand(migrateCmd(a))
	return root
}

// openBackend creates the configured backend. The caller must run Cleanup.
func (a *app) openBackend(cmd *cobra.Command) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	// The CLI never publishes sync messages; the worker sweep picks up changes.
	bcfg.AMQPURL = ""
	res, err := backend.NewFactory(a.logger).CreateBackend(cmd.Context(), bcfg)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}
	return res, nil
}

func main() {
	ctx, stop := cli.GracefulShutdown(cli.SetupLogger(nil, log.ComponentCLI, os.Stderr))
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
