package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"testing"

	"github.com/bluedeer/waterbill/internal/model"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"
)

type sentMessage struct {
	ChatID int64
	Text   string
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sentMessage
	failOn map[int64]bool
}

func (f *fakeSender) SendMarkdown(_ context.Context, chatID int64, text string) error {
	if f.failOn[chatID] {
		return errors.New("chat not found")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

type fakeSource struct {
	bills    []model.PropertyBill
	recerts  []model.TenantRecert
	admins   []int64
	adminErr error
}

func (f *fakeSource) ListLatestBills(context.Context) ([]model.PropertyBill, error) {
	return f.bills, nil
}

func (f *fakeSource) ListSection8Tenants(context.Context) ([]model.TenantRecert, error) {
	return f.recerts, nil
}

func (f *fakeSource) AdminChatIDs(context.Context) ([]int64, error) {
	return f.admins, f.adminErr
}

func newTestNotifier(sender Sender, source Source, opts ...Option) *Notifier {
	base := []Option{
		WithClock(func() time.Time { return today }),
		WithLogger(slog.New(slog.DiscardHandler)),
	}
	return New(sender, source, append(base, opts...)...)
}

func TestRecipients(t *testing.T) {
	t.Parallel()

	t.Run("configured admin first without duplicates", func(t *testing.T) {
		t.Parallel()
		n := newTestNotifier(&fakeSender{}, &fakeSource{admins: []int64{7, 42, 9, 7}}, WithAdmin(42))
		if diff := cmp.Diff([]int64{42, 7, 9}, n.Recipients(context.Background())); diff != "" {
			t.Errorf("recipients mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("lookup failure keeps configured admin", func(t *testing.T) {
		t.Parallel()
		n := newTestNotifier(&fakeSender{}, &fakeSource{adminErr: errors.New("db down")}, WithAdmin(42))
		if diff := cmp.Diff([]int64{42}, n.Recipients(context.Background())); diff != "" {
			t.Errorf("recipients mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestBroadcast(t *testing.T) {
	t.Parallel()

	t.Run("skips failed recipients", func(t *testing.T) {
		t.Parallel()
		sender := &fakeSender{failOn: map[int64]bool{7: true}}
		n := newTestNotifier(sender, &fakeSource{admins: []int64{7, 9}}, WithAdmin(42))

		sent, err := n.Broadcast(context.Background(), "hello")
		if err != nil {
			t.Fatal(err)
		}
		if sent != 2 {
			t.Errorf("expected 2 deliveries, got %d", sent)
		}
		want := []sentMessage{{42, "hello"}, {9, "hello"}}
		if diff := cmp.Diff(want, sender.sent); diff != "" {
			t.Errorf("sent mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("no recipients", func(t *testing.T) {
		t.Parallel()
		n := newTestNotifier(&fakeSender{}, &fakeSource{})
		if _, err := n.Broadcast(context.Background(), "hello"); !errors.Is(err, ErrNoRecipients) {
			t.Errorf("expected ErrNoRecipients, got %v", err)
		}
	})
}

func TestScheduledAlerts(t *testing.T) {
	t.Parallel()

	source := &fakeSource{bills: fixtureBills(), recerts: recertFixture()}

	tests := []struct {
		name   string
		send   func(*Notifier, context.Context) error
		header string
	}{
		{"recert", (*Notifier).SendRecertReminders, "🔔 *Recertification Reminders*"},
		{"threshold", (*Notifier).SendThresholdAlerts, "💧 *Water Bill Alerts* (>$100)"},
		{"due soon", (*Notifier).SendDueSoonReminders, "📅 *Bills Due Soon*"},
		{"overdue", (*Notifier).SendOverdueAlerts, "🔴 *Overdue Bills*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sender := &fakeSender{}
			n := newTestNotifier(sender, source, WithAdmin(42))
			if err := tt.send(n, context.Background()); err != nil {
				t.Fatal(err)
			}
			if len(sender.sent) != 1 || !strings.HasPrefix(sender.sent[0].Text, tt.header) {
				t.Errorf("unexpected messages: %+v", sender.sent)
			}
		})
	}

	t.Run("nothing to send is not an error", func(t *testing.T) {
		t.Parallel()
		sender := &fakeSender{}
		n := newTestNotifier(sender, &fakeSource{}, WithAdmin(42))
		if err := n.SendOverdueAlerts(context.Background()); err != nil {
			t.Fatal(err)
		}
		if len(sender.sent) != 0 {
			t.Errorf("expected no messages, got %+v", sender.sent)
		}
	})
}

type fakeAPI struct {
	sent []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func TestTelegramSender(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	if err := NewTelegramSender(api).SendMarkdown(context.Background(), 42, "*hi*"); err != nil {
		t.Fatal(err)
	}
	if len(api.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(api.sent))
	}
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("unexpected chattable %T", api.sent[0])
	}
	if msg.ChatID != 42 || msg.Text != "*hi*" || msg.ParseMode != tgbotapi.ModeMarkdown {
		t.Errorf("unexpected message: %+v", msg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewTelegramSender(api).SendMarkdown(ctx, 42, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
