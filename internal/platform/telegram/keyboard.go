package telegram

import (
	"strings"

	"github.com/go-telegram/bot/models"
)

// ParticipatePrefix starts the callback data of the participate button.
const ParticipatePrefix = "participate_"

const participateLabel = "🎉 Participate"

func InlineButton(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: callbackData}
}

// InlineKeyboard builds a markup. With no rows it removes the keyboard:
// Telegram rejects a null inline_keyboard, so the rows are never nil.
func InlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	if rows == nil {
		rows = [][]models.InlineKeyboardButton{}
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// ParticipateKeyboard is the single-button keyboard of an open control.
func ParticipateKeyboard(giveawayID string) *models.InlineKeyboardMarkup {
	return InlineKeyboard([]models.InlineKeyboardButton{
		InlineButton(participateLabel, ParticipateData(giveawayID)),
	})
}

func ParticipateData(giveawayID string) string {
	return ParticipatePrefix + giveawayID
}

// ParseParticipateData extracts the giveaway id from callback data.
func ParseParticipateData(data string) (string, bool) {
	id, ok := strings.CutPrefix(data, ParticipatePrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
