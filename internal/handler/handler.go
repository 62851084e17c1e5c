// Package handler is the Telegram command surface: admin commands that
// create and manage giveaways, and the participate button.
package handler

import (
	"context"
	"fmt"
	"html"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	apperrors "giveaway-bot/internal/common/errors"
	"giveaway-bot/internal/domain/giveaway"
	"giveaway-bot/internal/platform/telegram"
	giveawaysvc "giveaway-bot/internal/service/giveaway"
)

// Engine is the part of the lifecycle engine the commands drive.
type Engine interface {
	Create(ctx context.Context, in giveawaysvc.CreateInput) (giveaway.Giveaway, error)
	Join(ctx context.Context, giveawayID, userID string) (giveaway.Giveaway, error)
	Edit(ctx context.Context, query string, patch giveaway.Patch) (giveaway.Giveaway, error)
	EditMinimum(ctx context.Context, query string, minParticipants int) (giveaway.Giveaway, error)
	Find(query string) (giveaway.Giveaway, error)
	SetGlobalImage(ctx context.Context, url string) error
}

var _ Engine = (*giveawaysvc.Engine)(nil)

// Sender is the part of *bot.Bot used to reply.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// Registrar is satisfied by *bot.Bot.
type Registrar interface {
	RegisterHandler(handlerType bot.HandlerType, pattern string, matchType bot.MatchType, f bot.HandlerFunc, m ...bot.Middleware) string
}

type Handler struct {
	engine  Engine
	sender  Sender
	isAdmin func(int64) bool
	log     zerolog.Logger
}

func New(engine Engine, sender Sender, isAdmin func(int64) bool, log zerolog.Logger) *Handler {
	return &Handler{engine: engine, sender: sender, isAdmin: isAdmin, log: log}
}

// Register wires every command and callback.
func (h *Handler) Register(r Registrar) {
	r.RegisterHandler(bot.HandlerTypeMessageText, "/creategiveaway", bot.MatchTypePrefix, h.admin(h.handleCreate))
	r.RegisterHandler(bot.HandlerTypeMessageText, "/globalimage", bot.MatchTypePrefix, h.admin(h.handleGlobalImage))
	r.RegisterHandler(bot.HandlerTypeMessageText, "/editgiveaway", bot.MatchTypePrefix, h.admin(h.handleEdit))
	r.RegisterHandler(bot.HandlerTypeMessageText, "/editgmessage", bot.MatchTypePrefix, h.admin(h.handleEditMinimum))
	r.RegisterHandler(bot.HandlerTypeMessageText, "/listparticipants", bot.MatchTypePrefix, h.admin(h.handleListParticipants))
	r.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, h.handleHelp)
	r.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleHelp)

	r.RegisterHandler(bot.HandlerTypeCallbackQueryData, telegram.ParticipatePrefix, bot.MatchTypePrefix, h.handleParticipate)
}

// admin drops commands from users outside the admin list.
func (h *Handler) admin(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		msg := update.Message
		if msg == nil {
			return
		}
		if msg.From == nil || !h.isAdmin(msg.From.ID) {
			h.log.Warn().Int64("chat_id", msg.Chat.ID).Str("text", msg.Text).Msg("command from non-admin rejected")
			h.reply(ctx, msg, "❌ You do not have permission to use this command.")
			return
		}
		next(ctx, b, update)
	}
}

func (h *Handler) reply(ctx context.Context, msg *models.Message, text string) {
	disabled := true
	_, err := h.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             msg.Chat.ID,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: &disabled},
		ReplyParameters:    &models.ReplyParameters{MessageID: msg.ID, AllowSendingWithoutReply: true},
	})
	if err != nil {
		h.log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("reply failed")
	}
}

// errorText maps engine errors onto the phrase shown to the admin.
func (h *Handler) errorText(err error) string {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		h.log.Error().Err(err).Msg("command failed")
		return genericFailure
	}
	switch appErr.Code {
	case apperrors.ErrCodeGiveawayNotFound:
		return "❌ Giveaway not found."
	case apperrors.ErrCodeChannelNotFound:
		return "❌ Giveaway channel not accessible."
	case apperrors.ErrCodeMessageNotFound:
		return "❌ Giveaway message not found."
	case apperrors.ErrCodeAlreadyJoined:
		return alreadyJoined
	case apperrors.ErrCodeValidation:
		field, _ := appErr.Details["field"].(string)
		reason, _ := appErr.Details["reason"].(string)
		if field == "" {
			return "❌ " + html.EscapeString(appErr.Message)
		}
		return fmt.Sprintf("❌ Invalid %s: %s.", html.EscapeString(field), html.EscapeString(reason))
	default:
		h.log.Error().Err(err).Str("error_code", string(appErr.Code)).Msg("command failed")
		return genericFailure
	}
}

const (
	genericFailure = "❌ Something went wrong. Please try again later."
	alreadyJoined  = "❌ You are already participating in this giveaway!"
	noLongerActive = "❌ This giveaway is no longer active."
)
