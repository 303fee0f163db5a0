// Package notify mirrors event announcements to a Telegram chat.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// maxTelegramText is Telegram's message length limit.
const maxTelegramText = 4096

// Sender is the part of the bot API the announcer uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts announcements to one chat.
type Telegram struct {
	bot    Sender
	chatID int64
	logger *zap.Logger
}

// NewTelegram connects the bot with token.
func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	b, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	b.Debug = false
	return NewTelegramWithSender(b, chatID, logger), nil
}

// NewTelegramWithSender builds an announcer on an existing sender.
func NewTelegramWithSender(bot Sender, chatID int64, logger *zap.Logger) *Telegram {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Telegram{bot: bot, chatID: chatID, logger: logger}
}

// Announce sends one announcement. Plain text, no parse mode, so user input is never interpreted as markup.
func (t *Telegram) Announce(ctx context.Context, eventTitle, sender, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, FormatAnnouncement(eventTitle, sender, body))
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	t.logger.Debug("announcement mirrored to telegram", zap.Int64("chat_id", t.chatID))
	return nil
}

// FormatAnnouncement renders the Telegram text, truncated to the API limit.
func FormatAnnouncement(eventTitle, sender, body string) string {
	text := fmt.Sprintf("📣 %s\n\n%s\n\n(%s)", eventTitle, body, sender)
	r := []rune(text)
	if len(r) > maxTelegramText {
		text = string(r[:maxTelegramText-1]) + "…"
	}
	return text
}
