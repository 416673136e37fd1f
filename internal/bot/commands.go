package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bluedeer/waterbill/internal/database"
	"github.com/bluedeer/waterbill/internal/model"
	"github.com/bluedeer/waterbill/internal/notify"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	msgNoDatabase       = "⚠️ Database not connected."
	msgNoDatabaseConfig = "⚠️ Database not connected. Please check configuration."
	msgCancelled        = "Operation cancelled."

	// maxPropertyMatches limits how many properties /property shows.
	maxPropertyMatches = 5
)

type handlerFunc func(ctx context.Context, msg *tgbotapi.Message) error

// Commands returns the command menu shown by Telegram clients.
func Commands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "start", Description: "🏠 Main menu"},
		{Command: "summary", Description: "📊 Bill summary dashboard"},
		{Command: "properties", Description: "📍 View all properties"},
		{Command: "overdue", Description: "🔴 View overdue bills"},
		{Command: "add", Description: "➕ Add new property"},
		{Command: "remove", Description: "🗑️ Remove a property"},
		{Command: "refresh", Description: "🔄 Refresh bill data"},
		{Command: "recerts", Description: "📅 Upcoming recertifications"},
		{Command: "status", Description: "⚙️ Bot status"},
		{Command: "chatid", Description: "📍 Get this chat's ID"},
		{Command: "notify", Description: "🔔 Send test notification"},
		{Command: "help", Description: "❓ Help & commands"},
	}
}

func (b *Bot) commands() map[string]handlerFunc {
	return map[string]handlerFunc{
		"start":      b.handleStart,
		"help":       b.handleHelp,
		"properties": b.handleProperties,
		"property":   b.handleProperty,
		"summary":    b.handleSummary,
		"overdue":    b.handleOverdue,
		"refresh":    b.handleRefresh,
		"status":     b.handleStatus,
		"add":        b.handleAdd,
		"cancel":     b.handleCancel,
		"remove":     b.handleRemove,
		"chatid":     b.handleChatID,
		"recerts":    b.handleRecerts,
		"notify":     b.handleNotify,
	}
}

func (b *Bot) connected() bool {
	return b.store != nil
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user := msg.From
	if user == nil {
		user = &tgbotapi.User{}
	}

	if b.connected() && user.ID != 0 {
		err := b.store.UpsertTelegramUser(ctx, &model.TelegramUser{
			TelegramID: user.ID,
			Username:   user.UserName,
			FirstName:  user.FirstName,
			IsAdmin:    b.adminID != 0 && user.ID == b.adminID,
		})
		if err != nil {
			b.logger.Error("failed to register user", "user_id", user.ID, "error", err)
		}
	}

	dbStatus := "⚠️ Not connected"
	if b.connected() {
		dbStatus = "✅ Connected"
	}

	b.replyMarkdown(msg, fmt.Sprintf(`👋 Welcome to Water Bill Tracker, %s!

I help you track water bills for your properties from BSA Online (City of Warren, MI).

*Available Commands:*
/properties - List all tracked properties
/summary - Dashboard of all outstanding bills
/overdue - Show overdue bills only
/refresh - Manually update bill data
/add - Add a new property to track
/remove - Remove a property from tracking
/help - Show this help message

*Status Indicators:*
🟢 Current | 🟡 Due Soon | 🔴 Overdue

*Database:* %s`, user.FirstName, dbStatus))
	return nil
}

const helpText = `*Water Bill Tracker - Commands*

📋 *View Bills:*
/properties - List all properties with status
/summary - Overview of all outstanding bills
/overdue - Show only overdue bills
/property <address> - Details for specific property

🔄 *Updates:*
/refresh - Manually fetch latest bill data

➕ *Manage Properties:*
/add - Add new property to track
/remove - Remove a property from tracking

📅 *Tenants:*
/recerts - Upcoming Section 8 recertifications

⚙️ *Info:*
/status - Bot status and last update time
/chatid - Show this chat's ID
/notify - Send yourself a test notification

*Status Indicators:*
🟢 Current - No action needed
🟡 Due Soon - Due within 7 days
🔴 Overdue - Past due date
✅ Paid - No balance due`

func (b *Bot) handleHelp(_ context.Context, msg *tgbotapi.Message) error {
	b.replyMarkdown(msg, helpText)
	return nil
}

func (b *Bot) handleProperties(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.connected() {
		b.reply(msg, msgNoDatabaseConfig)
		return nil
	}
	bills, err := b.store.ListLatestBills(ctx)
	if err != nil {
		return err
	}
	b.replyMarkdown(msg, notify.PropertyList(bills))
	return nil
}

func (b *Bot) handleProperty(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.connected() {
		b.reply(msg, msgNoDatabaseConfig)
		return nil
	}
	query := strings.TrimSpace(msg.CommandArguments())
	if query == "" {
		b.reply(msg, "Usage: /property <address>\nExample: /property 3040 Alvina")
		return nil
	}

	props, err := b.store.FindProperties(ctx, query)
	if err != nil {
		return err
	}
	if len(props) == 0 {
		b.reply(msg, fmt.Sprintf("No property found matching %q.\nUse /properties to see all properties.", query))
		return nil
	}

	details := make([]string, 0, min(len(props), maxPropertyMatches))
	for _, p := range props[:min(len(props), maxPropertyMatches)] {
		pb := model.PropertyBill{Property: p}
		latest, err := b.store.LatestBill(ctx, p.ID)
		switch {
		case err == nil:
			pb.Latest = latest
		case !errors.Is(err, database.ErrNotFound):
			return err
		}
		details = append(details, notify.PropertyDetail(pb))
	}
	text := strings.Join(details, "\n\n")
	if len(props) > maxPropertyMatches {
		text += fmt.Sprintf("\n\n_%d more matches. Narrow your search._", len(props)-maxPropertyMatches)
	}
	b.replyMarkdown(msg, text)
	return nil
}

func (b *Bot) handleSummary(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.connected() {
		b.reply(msg, msgNoDatabase)
		return nil
	}
	bills, err := b.store.ListLatestBills(ctx)
	if err != nil {
		return err
	}
	if len(bills) == 0 {
		b.reply(msg, notify.Summary(bills))
		return nil
	}
	b.replyMarkdown(msg, notify.Summary(bills))
	return nil
}

func (b *Bot) handleOverdue(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.connected() {
		b.reply(msg, msgNoDatabase)
		return nil
	}
	bills, err := b.store.ListLatestBills(ctx)
	if err != nil {
		return err
	}
	b.replyMarkdown(msg, notify.OverdueList(bills, b.now()))
	return nil
}

func (b *Bot) handleRefresh(ctx context.Context, msg *tgbotapi.Message) error {
	b.reply(msg, "🔄 Fetching latest bill data...\n\nThis may take a moment.")

	if !b.connected() || b.refresher == nil {
		b.reply(msg, "⚠️ Database not available. Cannot refresh.")
		return nil
	}
	if _, err := b.refresher.Run(ctx); err != nil {
		b.logger.Error("refresh failed", "error", err)
		b.reply(msg, "❌ Update failed: "+err.Error())
		return nil
	}
	b.reply(msg, "✅ Bill data updated successfully!")
	return nil
}

func (b *Bot) handleStatus(ctx context.Context, msg *tgbotapi.Message) error {
	var sb strings.Builder
	sb.WriteString("⚙️ *Bot Status*\n\n")
	if !b.connected() {
		sb.WriteString("Database: ❌ Not connected\nBot: ✅ Running\n")
		b.replyMarkdown(msg, sb.String())
		return nil
	}
	sb.WriteString("Database: ✅ Connected\nBot: ✅ Running\n")

	count, err := b.store.CountActiveProperties(ctx)
	if err != nil {
		fmt.Fprintf(&sb, "\n_Error getting stats: %v_", err)
		b.replyMarkdown(msg, sb.String())
		return nil
	}
	fmt.Fprintf(&sb, "Properties Tracked: %d\n", count)

	last, err := b.store.LatestScrape(ctx)
	switch {
	case err == nil:
		status := "❌ Failed"
		if last.Success {
			status = "✅ Success"
		}
		fmt.Fprintf(&sb, "Last Scrape: %s\n", last.StartedAt.In(b.now().Location()).Format("Jan 02, 2006 15:04"))
		fmt.Fprintf(&sb, "Scrape Status: %s\n", status)
	case !errors.Is(err, database.ErrNotFound):
		fmt.Fprintf(&sb, "\n_Error getting stats: %v_", err)
	}
	b.replyMarkdown(msg, sb.String())
	return nil
}

func (b *Bot) handleChatID(_ context.Context, msg *tgbotapi.Message) error {
	title := msg.Chat.Title
	if title == "" {
		title = "N/A"
	}
	b.replyMarkdown(msg, fmt.Sprintf("📍 *Chat Info*\n\n"+
		"*Chat ID:* `%d`\n"+
		"*Type:* %s\n"+
		"*Title:* %s\n\n"+
		"Use this ID as `ADMIN_TELEGRAM_ID` to receive scheduled alerts here.",
		msg.Chat.ID, msg.Chat.Type, title))
	return nil
}

func (b *Bot) handleRecerts(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.connected() {
		b.reply(msg, msgNoDatabase)
		return nil
	}
	recerts, err := b.store.ListSection8Tenants(ctx)
	if err != nil {
		return err
	}
	b.replyMarkdown(msg, notify.RecertOverview(recerts, b.now()))
	return nil
}

func (b *Bot) handleNotify(_ context.Context, msg *tgbotapi.Message) error {
	userID := msg.Chat.ID
	if msg.From != nil {
		userID = msg.From.ID
	}

	test := tgbotapi.NewMessage(userID, notify.Test(userID))
	test.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(test); err != nil {
		return fmt.Errorf("failed to send test notification: %w", err)
	}
	b.reply(msg, "✅ Test notification sent!")
	return nil
}
