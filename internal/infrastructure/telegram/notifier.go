package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"QuestionScanner/internal/ports"
)

// Notifier sends run digests to a Telegram chat via bot API.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier authenticates the bot and binds it to chatID.
func NewNotifier(botToken, chatID string) (*Notifier, error) {
	return NewNotifierWithEndpoint(botToken, chatID, tgbotapi.APIEndpoint, &http.Client{Timeout: 5 * time.Second})
}

// NewNotifierWithEndpoint is NewNotifier against a custom API endpoint
// (format "https://host/bot%s/%s").
func NewNotifierWithEndpoint(botToken, chatID, endpoint string, client *http.Client) (*Notifier, error) {
	if botToken == "" || chatID == "" {
		return nil, fmt.Errorf("telegram notifier misconfigured")
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram chat id %q: %w", chatID, err)
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Notifier{bot: bot, chatID: id}, nil
}

// PublishDigest posts a plain-text message to the configured chat.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if n == nil || n.bot == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, digest)
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
