package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bluedeer/waterbill/internal/config"
	"github.com/bluedeer/waterbill/internal/database"
	"github.com/bluedeer/waterbill/internal/log"
	"github.com/bluedeer/waterbill/internal/portal"
	"github.com/spf13/cobra"
)

// loadConfig builds the configuration from the global flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Root().PersistentFlags()

	envFile, err := flags.GetString("env-file")
	if err != nil {
		return nil, err
	}
	configFile, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(envFile, configFile)
	if err != nil {
		return nil, err
	}
	cfg.Verbose, err = flags.GetBool("verbose")
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger creates the sanitizing logger on stderr. Long-running
// commands log at Info by default.
func newLogger(cmd *cobra.Command, daemon bool) *slog.Logger {
	flags := cmd.Root().PersistentFlags()
	verbose, _ := flags.GetBool("verbose")  //nolint:errcheck // flag is always defined
	jsonLogs, _ := flags.GetBool("log-json") //nolint:errcheck
	return log.NewSecureLoggerWithLevel(cmd.ErrOrStderr(), log.Level(verbose, daemon), jsonLogs)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// openStore opens the configured database and applies the schema.
func openStore(ctx context.Context, cfg *config.Config) (*database.SQLStore, error) {
	store, err := database.Open(ctx, cfg.DatabaseDSN(), database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close() //nolint:errcheck // the migrate error is returned
		return nil, err
	}
	return store, nil
}

// newPortalClient creates a portal client from cfg, dialing through
// PORTAL_PROXY when it is set.
func newPortalClient(cfg *config.Config, logger *slog.Logger) (*portal.Client, error) {
	opts := []portal.Option{
		portal.WithBaseURL(cfg.BaseURL),
		portal.WithMunicipality(cfg.MunicipalityUID, ""),
		portal.WithUserAgent(cfg.UserAgent),
		portal.WithTimeout(cfg.Timeout),
		portal.WithMaxBodySize(cfg.MaxBodySize),
		portal.WithDelay(cfg.RequestDelay),
		portal.WithLogger(logger),
	}
	if cfg.PortalProxy != "" {
		transport, err := portal.NewProxyTransport(cfg.PortalProxy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, portal.WithTransport(transport))
		logger.Debug("portal requests use a SOCKS5 proxy", "proxy", cfg.PortalProxy)
	}
	return portal.NewClient(opts...), nil
}

// clock returns time.Now in the configured zone.
func clock(cfg *config.Config) func() time.Time {
	loc := cfg.Location()
	return func() time.Time { return time.Now().In(loc) }
}
