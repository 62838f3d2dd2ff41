// Command saldo serves and queries a personal ledger kept in Google Sheets,
// SQLite or memory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"saldo/internal/backend"
	"saldo/internal/cli"
	"saldo/internal/config"
	"saldo/internal/log"
	"saldo/internal/services"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	version   = "dev"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "saldo",
		Short: "Personal ledger balances, budget and recaps",
		Long: `saldo reads a flat ledger of income and expense transactions and derives
running balances, a monthly budget status and month-by-month recaps.

The ledger lives in Google Sheets, a SQLite file, or memory (seeded from CSV).`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./saldo.yaml or $HOME/.config/saldo/saldo.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json); overrides LOG_FORMAT")

	root.AddCommand(serveCmd())
	root.AddCommand(summaryCmd())
	root.AddCommand(addCmd())
	root.AddCommand(recapCmd())
	root.AddCommand(mirrorCmd())
	root.AddCommand(versionCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is the configuration and logger shared by the subcommands.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

func loadApp(cmd *cobra.Command) (*app, error) {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	logger, err := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return &app{cfg: cfg, logger: logger.WithComponent(log.ComponentCLI)}, nil
}

func (a *app) openBackend(ctx context.Context) (*backend.Result, error) {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(a.logger).CreateBackend(ctx, bcfg)
}

func (a *app) closeBackend(res *backend.Result) {
	if err := res.Close(); err != nil {
		a.logger.Warn("Backend cleanup failed", log.FieldError, err)
	}
}

func (a *app) newService(res *backend.Result) *services.LedgerService {
	opts := services.Options{
		Streams:       a.cfg.Streams,
		BudgetCeiling: a.cfg.BudgetCeiling,
		RecentLimit:   a.cfg.RecentLimit,
		Logger:        a.logger,
	}
	if res.Publisher != nil {
		opts.Notifier = res.Publisher
	}
	return services.NewLedgerService(res.Store, opts)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "saldo %s\n", version)
		},
	}
}
