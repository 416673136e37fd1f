package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bluedeer/waterbill/internal/database"
	"github.com/bluedeer/waterbill/internal/model"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// pollTimeout is the long polling timeout in seconds.
const pollTimeout = 60

// Boter is the part of tgbotapi.BotAPI the bot uses.
type Boter interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Refresher runs a full bill refresh.
type Refresher interface {
	Run(ctx context.Context) (*model.ScrapeLog, error)
}

// Bot answers Telegram updates.
type Bot struct {
	api       Boter
	store     database.Store
	refresher Refresher
	adminID   int64
	logger    *slog.Logger
	now       func() time.Time

	mu sync.Mutex
	// adding holds the chats waiting for an account number after /add.
	adding map[int64]bool
}

// Option configures a Bot.
type Option func(*Bot)

// WithStore connects the bot to the database. Without a store the bot
// still runs and reports that the database is not connected.
func WithStore(s database.Store) Option {
	return func(b *Bot) { b.store = s }
}

// WithRefresher enables /refresh.
func WithRefresher(r Refresher) Option {
	return func(b *Bot) { b.refresher = r }
}

// WithAdmin marks the Telegram user that registers as admin on /start.
func WithAdmin(id int64) Option {
	return func(b *Bot) { b.adminID = id }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) { b.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Bot) { b.now = now }
}

// New creates a bot on top of api.
func New(api Boter, opts ...Option) *Bot {
	b := &Bot{
		api:    api,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
		adding: make(map[int64]bool),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run registers the command menu, drops updates queued while the bot was
// down, and handles updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(Commands()...)); err != nil {
		b.logger.Warn("failed to set bot commands", "error", err)
	}
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		b.logger.Warn("failed to drop pending updates", "error", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate dispatches one update. Handler errors are logged and
// reported to the chat.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		if b.isAdding(msg.Chat.ID) {
			b.run(ctx, msg, "add", b.handleAccountInput)
		}
		return
	}

	name := msg.Command()
	handler, ok := b.commands()[name]
	if !ok {
		return
	}
	// Any other command ends a pending /add.
	if name != "add" {
		b.setAdding(msg.Chat.ID, false)
	}
	b.run(ctx, msg, name, handler)
}

// run calls a command handler and reports its error.
func (b *Bot) run(ctx context.Context, msg *tgbotapi.Message, name string, h handlerFunc) {
	b.logger.Debug("handling command", "command", name, "chat_id", msg.Chat.ID)
	if err := h(ctx, msg); err != nil {
		b.logger.Error("command failed", "command", name, "chat_id", msg.Chat.ID, "error", err)
		b.reply(msg, "❌ Error: "+err.Error())
	}
}

func (b *Bot) isAdding(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.adding[chatID]
}

func (b *Bot) setAdding(chatID int64, adding bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if adding {
		b.adding[chatID] = true
		return
	}
	delete(b.adding, chatID)
}

// reply sends plain text to the message's chat.
func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	b.send(tgbotapi.NewMessage(msg.Chat.ID, text))
}

// replyMarkdown sends Markdown text to the message's chat.
func (b *Bot) replyMarkdown(msg *tgbotapi.Message, text string) {
	m := tgbotapi.NewMessage(msg.Chat.ID, text)
	m.ParseMode = tgbotapi.ModeMarkdown
	b.send(m)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Error("failed to send message", "error", err)
	}
}
