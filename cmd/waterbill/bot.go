package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bluedeer/waterbill/internal/bot"
	"github.com/bluedeer/waterbill/internal/config"
	"github.com/bluedeer/waterbill/internal/notify"
	"github.com/bluedeer/waterbill/internal/refresh"
	"github.com/bluedeer/waterbill/internal/scheduler"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewBotCmd creates the bot command.
func NewBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot and the scheduled jobs",
		Long: `Bot answers Telegram commands and runs the scheduled jobs: the daily
bill refresh and the recertification, threshold, due date and overdue alerts.

When the database cannot be opened the bot still starts, answers that the
database is not connected, and runs no scheduled jobs.

Stop it with Ctrl+C or SIGTERM.`,
		RunE: runBotCmd,
	}
}

func runBotCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateBot(); err != nil {
		return err
	}
	logger := newLogger(cmd, true)

	ctx, stop := signalContext(cmd)
	defer stop()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	logger.Info("authorized on Telegram", "bot", api.Self.UserName)

	now := clock(cfg)
	opts := []bot.Option{
		bot.WithLogger(logger),
		bot.WithAdmin(cfg.AdminTelegramID),
		bot.WithClock(now),
	}

	g, gctx := errgroup.WithContext(ctx)

	client, err := newPortalClient(cfg, logger)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Warn("database not available, running without it", "error", err)
	} else {
		defer store.Close()

		refresher := refresh.NewRefresher(store, client,
			refresh.WithRefreshLogger(logger),
			refresh.WithClock(now),
			refresh.WithPoliteness(cfg.RequestDelay),
		)
		notifier := notify.New(notify.NewTelegramSender(api), store,
			notify.WithAdmin(cfg.AdminTelegramID),
			notify.WithThreshold(cfg.WaterBillThreshold),
			notify.WithReminderDays(cfg.RecertReminderDays),
			notify.WithClock(now),
			notify.WithLogger(logger),
		)

		sched, err := newScheduler(cfg, refresher, notifier, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return sched.Run(gctx) })

		opts = append(opts, bot.WithStore(store), bot.WithRefresher(refresher))
	}

	b := bot.New(api, opts...)
	g.Go(func() error { return b.Run(gctx) })

	return g.Wait()
}

// newScheduler registers the refresh and alert jobs.
func newScheduler(cfg *config.Config, refresher *refresh.Refresher, notifier *notify.Notifier, logger *slog.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.New(cfg.Location(), logger)
	jobs := scheduler.Jobs(cfg, scheduler.Tasks{
		Refresh: func(ctx context.Context) error {
			_, err := refresher.Run(ctx)
			return err
		},
		Recert:    notifier.SendRecertReminders,
		Threshold: notifier.SendThresholdAlerts,
		DueSoon:   notifier.SendDueSoonReminders,
		Overdue:   notifier.SendOverdueAlerts,
	})
	if err := sched.AddAll(jobs); err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}
	logger.Info("jobs scheduled", "jobs", sched.Names())
	return sched, nil
}
