// Package notifier delivers operator messages to chat and answers chat commands.
package notifier

import (
	"context"

	"github.com/sirupsen/logrus"

	"rent-reclaim-bot-go/internal/config"
)

// Notifier sends free text with light markdown
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Nop discards every message
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }

// New returns a Telegram notifier when it is enabled in cfg, Nop otherwise
func New(cfg *config.Config, logger *logrus.Logger) (Notifier, error) {
	if !cfg.Telegram.Enabled {
		return Nop{}, nil
	}
	return NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
}

// Send delivers text and logs a failure instead of returning it
func Send(ctx context.Context, n Notifier, logger *logrus.Logger, text string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, text); err != nil {
		logger.WithError(err).Warn("Telegram notification failed")
	}
}
