package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bluedeer/waterbill/internal/database"
	"github.com/bluedeer/waterbill/internal/model"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data of the /remove keyboard.
const (
	callbackRemovePrefix  = "remove_prop_"
	callbackConfirmPrefix = "confirm_remove_"
	callbackRemoveCancel  = "remove_cancel"
)

const (
	// minAccountLength rejects obviously wrong account numbers.
	minAccountLength = 4

	// maxButtonLabel is the longest address shown on a keyboard button.
	maxButtonLabel = 40
)

func (b *Bot) handleAdd(_ context.Context, msg *tgbotapi.Message) error {
	if !b.connected() {
		b.reply(msg, "⚠️ Database not connected. Cannot add properties.")
		return nil
	}

	b.setAdding(msg.Chat.ID, true)
	b.replyMarkdown(msg, "📍 *Add New Property*\n\n"+
		"Please enter the BSA Online account number for the property:\n\n"+
		"Example: `302913026`\n\n"+
		"Use /cancel to cancel.")
	return nil
}

// handleAccountInput receives the account number after /add.
func (b *Bot) handleAccountInput(ctx context.Context, msg *tgbotapi.Message) error {
	account := strings.TrimSpace(msg.Text)
	if utf8.RuneCountInString(account) < minAccountLength {
		b.reply(msg, "Invalid account number. Please try again.")
		return nil
	}
	b.setAdding(msg.Chat.ID, false)

	if !b.connected() {
		b.reply(msg, "⚠️ Database not connected. Cannot add properties.")
		return nil
	}

	p := model.NewPendingProperty(account)
	err := b.store.AddProperty(ctx, p)
	if errors.Is(err, database.ErrDuplicateAccount) {
		existing, gerr := b.store.GetPropertyByAccount(ctx, account)
		if gerr != nil {
			return gerr
		}
		b.reply(msg, "This account is already being tracked:\n"+existing.Address)
		return nil
	}
	if err != nil {
		return err
	}

	b.logger.Info("property added", "property_id", p.ID, "account", p.AccountNumber)
	b.replyMarkdown(msg, fmt.Sprintf("✅ Property added with account: `%s`\n\n"+
		"Use /refresh to fetch bill data.", p.AccountNumber))
	return nil
}

func (b *Bot) handleCancel(_ context.Context, msg *tgbotapi.Message) error {
	b.setAdding(msg.Chat.ID, false)
	b.reply(msg, msgCancelled)
	return nil
}

func (b *Bot) handleRemove(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.connected() {
		b.reply(msg, "⚠️ Database not connected. Cannot remove properties.")
		return nil
	}

	props, err := b.store.ListActiveProperties(ctx)
	if err != nil {
		return err
	}
	if len(props) == 0 {
		b.reply(msg, "No properties to remove.\nUse /add to add properties first.")
		return nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(props)+1)
	for _, p := range props {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(buttonLabel(p.Address), callbackRemovePrefix+strconv.FormatInt(p.ID, 10)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", callbackRemoveCancel),
	))

	m := tgbotapi.NewMessage(msg.Chat.ID, "🗑️ *Remove Property*\n\nSelect the property you want to remove:")
	m.ParseMode = tgbotapi.ModeMarkdown
	m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.send(m)
	return nil
}

// buttonLabel truncates an address to fit on a keyboard button.
func buttonLabel(address string) string {
	r := []rune(address)
	if len(r) <= maxButtonLabel {
		return address
	}
	return string(r[:maxButtonLabel]) + "..."
}

// handleCallback answers the /remove keyboard.
func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", "error", err)
	}
	if q.Message == nil {
		return
	}
	chatID, messageID := q.Message.Chat.ID, q.Message.MessageID

	var err error
	switch data := q.Data; {
	case data == callbackRemoveCancel:
		b.edit(chatID, messageID, msgCancelled)
	case strings.HasPrefix(data, callbackRemovePrefix):
		err = b.confirmRemoval(ctx, chatID, messageID, strings.TrimPrefix(data, callbackRemovePrefix))
	case strings.HasPrefix(data, callbackConfirmPrefix):
		err = b.removeProperty(ctx, chatID, messageID, strings.TrimPrefix(data, callbackConfirmPrefix))
	default:
		b.logger.Debug("ignoring callback", "data", data)
	}
	if err != nil {
		b.logger.Error("callback failed", "data", q.Data, "error", err)
		b.edit(chatID, messageID, "❌ Error: "+err.Error())
	}
}

// lookupCallbackProperty resolves the property ID carried in callback data.
// It returns nil when the property does not exist.
func (b *Bot) lookupCallbackProperty(ctx context.Context, rawID string) (*model.Property, error) {
	if !b.connected() {
		return nil, errors.New("database not connected")
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, nil //nolint:nilnil // malformed data is treated like a missing property
	}
	p, err := b.store.GetProperty(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil //nolint:nilnil
	}
	return p, err
}

func (b *Bot) confirmRemoval(ctx context.Context, chatID int64, messageID int, rawID string) error {
	p, err := b.lookupCallbackProperty(ctx, rawID)
	if err != nil {
		return err
	}
	if p == nil {
		b.edit(chatID, messageID, "❌ Property not found.")
		return nil
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Yes, Remove", callbackConfirmPrefix+strconv.FormatInt(p.ID, 10)),
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", callbackRemoveCancel),
	))
	b.editMarkdown(chatID, messageID, fmt.Sprintf("⚠️ *Confirm Removal*\n\n"+
		"Are you sure you want to remove this property?\n\n"+
		"*Address:* %s\n"+
		"*Account:* `%s`\n\n"+
		"This will stop tracking bills for this property.", p.Address, p.AccountNumber), &keyboard)
	return nil
}

func (b *Bot) removeProperty(ctx context.Context, chatID int64, messageID int, rawID string) error {
	p, err := b.lookupCallbackProperty(ctx, rawID)
	if err != nil {
		return err
	}
	if p == nil {
		b.edit(chatID, messageID, "❌ Property not found.")
		return nil
	}
	if err := b.store.DeactivateProperty(ctx, p.ID); err != nil {
		return err
	}

	b.logger.Info("property removed", "property_id", p.ID, "account", p.AccountNumber)
	b.editMarkdown(chatID, messageID, fmt.Sprintf("✅ *Property Removed*\n\n"+
		"*%s* has been removed from tracking.\n\n"+
		"Use /add to add it back if needed.", p.Address), nil)
	return nil
}

// edit replaces the text of a sent message and drops its keyboard.
func (b *Bot) edit(chatID int64, messageID int, text string) {
	b.send(tgbotapi.NewEditMessageText(chatID, messageID, text))
}

// editMarkdown replaces the text of a sent message with Markdown. A nil
// keyboard drops the keyboard.
func (b *Bot) editMarkdown(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	var e tgbotapi.EditMessageTextConfig
	if keyboard != nil {
		e = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *keyboard)
	} else {
		e = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	e.ParseMode = tgbotapi.ModeMarkdown
	b.send(e)
}
