package middleware

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
)

// Logging logs each update with its processing time.
func Logging(log zerolog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()
			updateType, chatID, userID := describe(update)

			next(ctx, b, update)

			log.Debug().
				Str("type", updateType).
				Int64("chat_id", chatID).
				Int64("user_id", userID).
				Dur("duration", time.Since(start)).
				Msg("update processed")
		}
	}
}

func describe(update *models.Update) (updateType string, chatID, userID int64) {
	switch {
	case update.Message != nil:
		chatID = update.Message.Chat.ID
		if update.Message.From != nil {
			userID = update.Message.From.ID
		}
		return "message", chatID, userID
	case update.CallbackQuery != nil:
		if m := update.CallbackQuery.Message.Message; m != nil {
			chatID = m.Chat.ID
		}
		return "callback_query", chatID, update.CallbackQuery.From.ID
	case update.ChannelPost != nil:
		return "channel_post", update.ChannelPost.Chat.ID, 0
	default:
		return "unknown", 0, 0
	}
}
