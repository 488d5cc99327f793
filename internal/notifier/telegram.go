package notifier

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramBot is the part of the bot API the sink uses
type TelegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var _ TelegramBot = (*tgbotapi.BotAPI)(nil)

// TelegramSink sends reminders to one chat. A new reminder with the same tag
// deletes the previous message first, so reminders replace rather than stack.
type TelegramSink struct {
	bot    TelegramBot
	chatID int64
	logger *zap.Logger

	mu       sync.Mutex
	messages map[string]int // tag -> message id
}

// NewTelegramSink authorizes the bot token and returns a sink for chatID
func NewTelegramSink(token string, chatID int64, logger *zap.Logger) (*TelegramSink, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	logger.Info("telegram bot authorized", zap.String("username", bot.Self.UserName))
	return NewTelegramSinkWithBot(bot, chatID, logger), nil
}

// NewTelegramSinkWithBot creates a sink over an existing bot
func NewTelegramSinkWithBot(bot TelegramBot, chatID int64, logger *zap.Logger) *TelegramSink {
	return &TelegramSink{
		bot:      bot,
		chatID:   chatID,
		logger:   logger,
		messages: make(map[string]int),
	}
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Notify(ctx context.Context, r Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.messages[r.Tag]; ok {
		// The old message may already be gone; that is fine.
		if _, err := s.bot.Request(tgbotapi.NewDeleteMessage(s.chatID, prev)); err != nil {
			s.logger.Warn("failed to delete superseded reminder",
				zap.Error(err),
				zap.String("tag", r.Tag),
				zap.Int("message_id", prev),
			)
		}
		delete(s.messages, r.Tag)
	}

	msg := tgbotapi.NewMessage(s.chatID, fmt.Sprintf("⏰ %s\n%s", r.Title, r.Body))
	sent, err := s.bot.Send(msg)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	s.messages[r.Tag] = sent.MessageID
	return nil
}

func (s *TelegramSink) Close() error { return nil }
