package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewInitDBCmd creates the initdb command.
func NewInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Create the database tables",
		Long: `Initdb connects to DATABASE_URL (or the default SQLite file in the
data directory), creates any missing tables and lists them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			tables, err := store.ListTables(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database ready (%s)\n", store.Driver())
			fmt.Fprintln(out, "Tables:")
			for _, t := range tables {
				fmt.Fprintf(out, "  - %s\n", t)
			}
			return nil
		},
	}
}
