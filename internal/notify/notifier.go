package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bluedeer/waterbill/internal/model"
)

// ErrNoRecipients is returned when there is nobody to notify.
var ErrNoRecipients = errors.New("no admin chat IDs configured for notifications")

// Sender delivers a Markdown message to a chat.
type Sender interface {
	SendMarkdown(ctx context.Context, chatID int64, text string) error
}

// Source is the data the notifier reads. database.Store implements it.
type Source interface {
	ListLatestBills(ctx context.Context) ([]model.PropertyBill, error)
	ListSection8Tenants(ctx context.Context) ([]model.TenantRecert, error)
	AdminChatIDs(ctx context.Context) ([]int64, error)
}

// Notifier sends scheduled alerts to the configured admin and every admin
// user who has notifications enabled.
type Notifier struct {
	sender       Sender
	source       Source
	adminID      int64
	threshold    model.Cents
	reminderDays int
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAdmin adds a fixed admin chat ID.
func WithAdmin(id int64) Option {
	return func(n *Notifier) { n.adminID = id }
}

// WithThreshold sets the amount at which a bill triggers an alert.
func WithThreshold(c model.Cents) Option {
	return func(n *Notifier) { n.threshold = c }
}

// WithReminderDays sets how many days ahead recert reminders start.
func WithReminderDays(d int) Option {
	return func(n *Notifier) { n.reminderDays = d }
}

// WithClock sets the clock that decides what "today" is.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// New creates a Notifier.
func New(sender Sender, source Source, opts ...Option) *Notifier {
	n := &Notifier{
		sender:       sender,
		source:       source,
		threshold:    10000,
		reminderDays: 30,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Recipients returns the admin chat IDs without duplicates, the configured
// admin first. A failing lookup still yields the configured admin.
func (n *Notifier) Recipients(ctx context.Context) []int64 {
	var ids []int64
	seen := map[int64]bool{}
	add := func(id int64) {
		if id != 0 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	add(n.adminID)
	admins, err := n.source.AdminChatIDs(ctx)
	if err != nil {
		n.logger.Error("failed to get admin chat IDs", "error", err)
	}
	for _, id := range admins {
		add(id)
	}
	return ids
}

// Broadcast sends text to every recipient and returns how many received it.
// A failed delivery is logged and does not stop the others.
func (n *Notifier) Broadcast(ctx context.Context, text string) (int, error) {
	ids := n.Recipients(ctx)
	if len(ids) == 0 {
		n.logger.Warn("no admin chat IDs configured for notifications")
		return 0, ErrNoRecipients
	}

	sent := 0
	for _, id := range ids {
		if err := n.sender.SendMarkdown(ctx, id, text); err != nil {
			n.logger.Error("failed to send notification", "chat_id", id, "error", err)
			continue
		}
		n.logger.Info("sent notification", "chat_id", id)
		sent++
	}
	return sent, nil
}

// SendTo sends text to one chat.
func (n *Notifier) SendTo(ctx context.Context, chatID int64, text string) error {
	return n.sender.SendMarkdown(ctx, chatID, text)
}

// SendRecertReminders notifies about recertifications due within the
// reminder window.
func (n *Notifier) SendRecertReminders(ctx context.Context) error {
	recerts, err := n.source.ListSection8Tenants(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}
	return n.deliver(ctx, "recert reminders", RecertReminders(recerts, n.now(), n.reminderDays))
}

// SendThresholdAlerts notifies about bills at or above the threshold.
func (n *Notifier) SendThresholdAlerts(ctx context.Context) error {
	bills, err := n.source.ListLatestBills(ctx)
	if err != nil {
		return fmt.Errorf("failed to list bills: %w", err)
	}
	return n.deliver(ctx, "water bill alerts", ThresholdAlerts(bills, n.threshold))
}

// SendDueSoonReminders notifies about bills due within a week.
func (n *Notifier) SendDueSoonReminders(ctx context.Context) error {
	bills, err := n.source.ListLatestBills(ctx)
	if err != nil {
		return fmt.Errorf("failed to list bills: %w", err)
	}
	return n.deliver(ctx, "due date reminders", DueSoonReminders(bills, n.now()))
}

// SendOverdueAlerts notifies about bills past their due date.
func (n *Notifier) SendOverdueAlerts(ctx context.Context) error {
	bills, err := n.source.ListLatestBills(ctx)
	if err != nil {
		return fmt.Errorf("failed to list bills: %w", err)
	}
	return n.deliver(ctx, "overdue alerts", OverdueAlerts(bills, n.now()))
}

func (n *Notifier) deliver(ctx context.Context, kind, text string) error {
	if text == "" {
		n.logger.Info("nothing to send", "kind", kind)
		return nil
	}
	sent, err := n.Broadcast(ctx, text)
	if err != nil {
		return err
	}
	n.logger.Info("notifications sent", "kind", kind, "recipients", sent)
	return nil
}
