// Package middleware holds go-telegram/bot update middlewares.
package middleware

import (
	"context"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
)

// Recover keeps a panicking handler from taking the update loop down.
func Recover(log zerolog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Int64("update_id", update.ID).
						Str("stack", string(debug.Stack())).
						Msg("panic recovered in handler")
				}
			}()
			next(ctx, b, update)
		}
	}
}
