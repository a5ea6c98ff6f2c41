package delivery

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Channel sends one message to one destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// telegramSender is the part of tgbotapi.BotAPI the channel needs.
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramConfig addresses one Telegram chat. Endpoint overrides the API endpoint format
// when non-empty.
type TelegramConfig struct {
	BotToken string
	ChatID   int64
	Endpoint string
	Timeout  time.Duration
}

// TelegramChannel posts photos with captions to a Telegram chat.
type TelegramChannel struct {
	bot    telegramSender
	chatID int64
}

// NewTelegramChannel authenticates the bot and targets cfg.ChatID. A nil client gets one
// with cfg.Timeout.
func NewTelegramChannel(cfg TelegramConfig, client *http.Client) (*TelegramChannel, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, cfg.Endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramChannel{bot: bot, chatID: cfg.ChatID}, nil
}

func (c *TelegramChannel) Name() string {
	return fmt.Sprintf("telegram:%d", c.chatID)
}

// Send uploads nothing; Telegram fetches the poster from its public URL.
// tgbotapi takes no context, so Send returns on ctx expiry while the call finishes
// under the client timeout.
func (c *TelegramChannel) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(c.chatID, tgbotapi.FileURL(msg.PhotoURL))
	photo.Caption = msg.Caption

	done := make(chan error, 1)
	go func() {
		_, err := c.bot.Send(photo)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("telegram send to %d: %w", c.chatID, ctx.Err())
	}
}
