package handler

import (
	"context"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	apperrors "giveaway-bot/internal/common/errors"
	"giveaway-bot/internal/platform/telegram"
)

func (h *Handler) handleParticipate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}

	id, ok := telegram.ParseParticipateData(cq.Data)
	if !ok {
		h.answer(ctx, cq.ID, noLongerActive, true)
		return
	}

	_, err := h.engine.Join(ctx, id, strconv.FormatInt(cq.From.ID, 10))
	switch {
	case err == nil:
		h.answer(ctx, cq.ID, "✅ You are now participating!", false)
	case apperrors.HasCode(err, apperrors.ErrCodeGiveawayNotFound):
		h.answer(ctx, cq.ID, noLongerActive, true)
	case apperrors.HasCode(err, apperrors.ErrCodeAlreadyJoined):
		h.answer(ctx, cq.ID, alreadyJoined, true)
	default:
		h.answer(ctx, cq.ID, h.errorText(err), true)
	}
}

func (h *Handler) answer(ctx context.Context, callbackID, text string, alert bool) {
	_, err := h.sender.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		h.log.Warn().Err(err).Str("callback_id", callbackID).Msg("answer callback failed")
	}
}
