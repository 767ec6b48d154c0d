package notifier

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"rent-reclaim-bot-go/internal/reporter"
	"rent-reclaim-bot-go/internal/storage"
)

// CommandHandler answers chat commands from the configured chat
type CommandHandler struct {
	telegram *Telegram
	reports  *reporter.Reporter
	repo     storage.Repository
	dryRun   bool
	logger   *logrus.Logger
}

func NewCommandHandler(telegram *Telegram, reports *reporter.Reporter, repo storage.Repository, dryRun bool, logger *logrus.Logger) *CommandHandler {
	return &CommandHandler{
		telegram: telegram,
		reports:  reports,
		repo:     repo,
		dryRun:   dryRun,
		logger:   logger,
	}
}

// Run long-polls for updates until ctx is cancelled
func (h *CommandHandler) Run(ctx context.Context) error {
	bot := h.telegram.Bot()
	if bot == nil {
		return errors.New("telegram bot is not authorized")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)
	defer bot.StopReceivingUpdates()

	h.logger.Info("🤖 Telegram command handler started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.handle(ctx, update)
		}
	}
}

func (h *CommandHandler) handle(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}
	if msg.Chat == nil || msg.Chat.ID != h.telegram.chatID {
		h.logger.WithField("chat_id", chatIDOf(msg)).Debug("Ignoring command from unknown chat")
		return
	}

	command := msg.Command()
	h.logger.WithField("command", command).Info("Telegram command received")

	if err := h.telegram.send(msg.Chat.ID, h.Reply(ctx, command)); err != nil {
		h.logger.WithError(err).WithField("command", command).Warn("Failed to answer command")
	}
}

// Reply renders the answer to one command
func (h *CommandHandler) Reply(ctx context.Context, command string) string {
	switch command {
	case "start":
		return StartText
	case "help":
		return HelpText

	case "status":
		report, err := h.reports.Generate(ctx)
		if err != nil {
			h.logger.WithError(err).Error("Failed to build status")
			return "❌ Error getting status"
		}
		return FormatStatus(report.Analysis)

	case "report":
		report, err := h.reports.Generate(ctx)
		if err != nil {
			h.logger.WithError(err).Error("Failed to build report")
			return "❌ Error generating report"
		}
		return FormatReport(report)

	case "reclaim":
		accounts, err := h.repo.LoadAccounts(ctx)
		if err != nil {
			h.logger.WithError(err).Error("Failed to load tracked accounts")
			return "❌ Error checking eligible accounts"
		}
		return FormatReclaimPreview(accounts.Eligible(), h.dryRun)
	}

	return "Unknown command. Send /help for the list of commands."
}

func chatIDOf(msg *tgbotapi.Message) int64 {
	if msg.Chat == nil {
		return 0
	}
	return msg.Chat.ID
}
