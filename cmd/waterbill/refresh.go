package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/bluedeer/waterbill/internal/model"
	"github.com/bluedeer/waterbill/internal/notify"
	"github.com/bluedeer/waterbill/internal/refresh"
	"github.com/spf13/cobra"
)

// NewRefreshCmd creates the refresh command.
func NewRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the latest bills for all tracked properties",
		Long: `Refresh looks up every active property on the portal once, stores the
new bills and records the run in the scrape log.

Examples:
  # Refresh everything
  waterbill refresh

  # Refresh a single account
  waterbill refresh --account 302913026`,
		RunE: runRefreshCmd,
	}

	cmd.Flags().StringP("account", "a", "", "Refresh only this account number")
	cmd.Flags().IntP("workers", "w", 1, "Number of concurrent lookups")

	return cmd
}

func runRefreshCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cmd, false)

	account, err := cmd.Flags().GetString("account")
	if err != nil {
		return err
	}
	workers, err := cmd.Flags().GetInt("workers")
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	client, err := newPortalClient(cfg, logger)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	refresher := refresh.NewRefresher(store, client,
		refresh.WithRefreshLogger(logger),
		refresh.WithClock(clock(cfg)),
		refresh.WithPoliteness(cfg.RequestDelay),
		refresh.WithWorkers(workers),
	)
	out := cmd.OutOrStdout()

	if account != "" {
		p, err := store.GetPropertyByAccount(ctx, account)
		if err != nil {
			return err
		}
		job, err := refresher.RefreshProperty(ctx, *p)
		if err != nil {
			return err
		}
		writeJob(out, job)
		return nil
	}

	scrape, err := refresher.Run(ctx)
	if scrape != nil {
		writeScrape(out, scrape)
	}
	return err
}

func writeJob(w io.Writer, job *refresh.Job) {
	fmt.Fprintf(w, "%s: %s\n", job.Property.AccountNumber, job.Outcome)
	if job.Recorded != nil {
		fmt.Fprintf(w, "  Amount due: %s\n", notify.Money(job.Recorded.AmountDue))
		fmt.Fprintf(w, "  Due date:   %s\n", notify.Date(job.Recorded.DueDate))
		fmt.Fprintf(w, "  Status:     %s\n", job.Recorded.Status.Label())
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(w, "  Error: %s\n", job.ErrorMessage)
	}
}

func writeScrape(w io.Writer, l *model.ScrapeLog) {
	status := "success"
	if !l.Success {
		status = "failed"
	}
	fmt.Fprintf(w, "Refresh %s (run %s)\n", status, l.RunID)
	fmt.Fprintf(w, "  Properties scraped: %d\n", l.PropertiesScraped)
	if len(l.Details.NotFound) > 0 {
		fmt.Fprintf(w, "  Not found: %s\n", strings.Join(l.Details.NotFound, ", "))
	}
	if len(l.Details.Failed) > 0 {
		fmt.Fprintf(w, "  Failed:    %s\n", strings.Join(l.Details.Failed, ", "))
	}
}
