package notify

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MessageSender is the part of *tgbotapi.BotAPI used to send messages.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender sends Markdown messages through the Bot API.
type TelegramSender struct {
	api MessageSender
}

// NewTelegramSender wraps a Bot API client.
func NewTelegramSender(api MessageSender) *TelegramSender {
	return &TelegramSender{api: api}
}

// SendMarkdown implements Sender.
func (s *TelegramSender) SendMarkdown(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := s.api.Send(msg)
	return err
}
