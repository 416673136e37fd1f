package main

import (
	"fmt"
	"os"

	"github.com/bluedeer/waterbill/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for waterbill.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waterbill",
		Short: "Water bill tracker for BS&A Online with a Telegram bot",
		Long: `waterbill looks up water bills on the BS&A Online utility portal,
stores them, and reports balances, due dates and overdue bills through a
Telegram bot with scheduled alerts.

Run "waterbill setup" once to prepare the environment, then "waterbill bot".`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Path to configuration file (default: .waterbill.yaml in current or home directory)")
	cmd.PersistentFlags().String("env-file", config.DefaultEnvFile, "Path to the dotenv file")

	cmd.AddCommand(NewSetupCmd())
	cmd.AddCommand(NewInitDBCmd())
	cmd.AddCommand(NewBotCmd())
	cmd.AddCommand(NewRefreshCmd())
	cmd.AddCommand(NewLookupCmd())
	cmd.AddCommand(NewDiscoverCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewKeygenCmd())
	cmd.AddCommand(NewEncryptCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
