// Package notify delivers out-of-band notifications about long-running work.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/protolab/prototype-backend/internal/config"
	"github.com/protolab/prototype-backend/internal/entity"
)

// TelegramNotifier pings a Telegram chat when a generation sequence
// finishes. Generation can take minutes, so users are not expected to keep
// the page open.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

func NewTelegramNotifier(cfg config.TelegramConfig, logger *zap.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}

	return &TelegramNotifier{
		api:    api,
		chatID: cfg.ChatID,
		logger: logger,
	}, nil
}

// GenerationFinished is best-effort: delivery failures are logged and never
// surfaced to the generation flow.
func (n *TelegramNotifier) GenerationFinished(ctx context.Context, session *entity.Session, pageCount int, genErr error) {
	var text string
	if genErr != nil {
		text = fmt.Sprintf("Prototype %q: generation failed: %v", session.Name, genErr)
	} else {
		text = fmt.Sprintf("Prototype %q: all %d pages generated.", session.Name, pageCount)
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		ctxzap.Error(ctx, "failed to send telegram notification",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return
	}

	ctxzap.Info(ctx, "telegram notification sent", zap.String("session_id", session.ID))
}
