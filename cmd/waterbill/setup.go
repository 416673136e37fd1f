package main

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/bluedeer/waterbill/internal/bootstrap"
	"github.com/bluedeer/waterbill/internal/database"
	"github.com/spf13/cobra"
)

// NewSetupCmd creates the setup command.
func NewSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Prepare the environment for the bot",
		Long: `Setup prepares a local or container environment. It runs once, in order:

  1. Check prerequisites (headless browser, extra tools from --require)
  2. Create the data directory
  3. Create the database tables
  4. Locate the headless browser
  5. Copy .env.example to .env unless .env exists
  6. Create screenshots/ and discovery_results/

Setup is idempotent. It never overwrites an existing .env. When a
prerequisite is missing it exits with an error before changing anything.

Examples:
  # Prepare the current directory
  waterbill setup

  # Without the browser check (no discover command)
  waterbill setup --skip-browser`,
		RunE: runSetupCmd,
	}

	cmd.Flags().String("root", ".", "Directory for .env and the output directories")
	cmd.Flags().String("data-dir", "", "Data directory (default: XDG data directory)")
	cmd.Flags().Bool("skip-browser", false, "Do not check for the headless browser")
	cmd.Flags().StringSlice("require", nil, "Extra executables that must be in PATH")

	return cmd
}

func runSetupCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, false)

	root, err := cmd.Flags().GetString("root")
	if err != nil {
		return err
	}
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	skipBrowser, err := cmd.Flags().GetBool("skip-browser")
	if err != nil {
		return err
	}
	tools, err := cmd.Flags().GetStringSlice("require")
	if err != nil {
		return err
	}

	dsn := cfg.DatabaseDSN()
	b := bootstrap.New(
		bootstrap.WithRoot(root),
		bootstrap.WithDataDir(cfg.DataDir),
		bootstrap.WithOutputDirs(cfg.ScreenshotDir, cfg.DiscoveryDir),
		bootstrap.WithBrowser(!skipBrowser, cfg.BrowserPath),
		bootstrap.WithRequiredTools(tools...),
		bootstrap.WithSchema(func(ctx context.Context) (bool, error) {
			return applySchema(ctx, dsn)
		}),
		bootstrap.WithLogger(logger),
	)

	ctx, stop := signalContext(cmd)
	defer stop()

	out := cmd.OutOrStdout()
	results, err := b.Run(ctx)
	if werr := bootstrap.WriteResults(out, results); werr != nil {
		return werr
	}
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	fmt.Fprintln(out, "\nSetup complete. Next steps:")
	fmt.Fprintf(out, "  1. Edit %s with your TELEGRAM_BOT_TOKEN\n", filepath.Join(root, ".env"))
	fmt.Fprintln(out, "  2. Run: waterbill bot")
	return nil
}

// applySchema creates the tables and reports whether any were missing.
func applySchema(ctx context.Context, dsn string) (bool, error) {
	store, err := database.Open(ctx, dsn, database.DefaultOptions())
	if err != nil {
		return false, err
	}
	defer store.Close()

	before, err := store.ListTables(ctx)
	if err != nil {
		return false, err
	}
	if err := store.Migrate(ctx); err != nil {
		return false, err
	}
	after, err := store.ListTables(ctx)
	if err != nil {
		return false, err
	}
	for _, table := range after {
		if !slices.Contains(before, table) {
			return true, nil
		}
	}
	return false, nil
}
