package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCodeThroughWrapping(t *testing.T) {
	base := NewGiveawayNotFoundError("giveaway-9")
	wrapped := fmt.Errorf("edit: %w", base)

	assert.True(t, HasCode(wrapped, ErrCodeGiveawayNotFound))
	assert.False(t, HasCode(wrapped, ErrCodeAlreadyJoined))
	assert.False(t, HasCode(stderrors.New("plain"), ErrCodeGiveawayNotFound))
	assert.False(t, HasCode(nil, ErrCodeGiveawayNotFound))
}

func TestErrorFamilies(t *testing.T) {
	assert.True(t, NewChannelNotFoundError("c1").IsNotFound())
	assert.True(t, NewMessageNotFoundError("c1", "m1").IsNotFound())
	assert.True(t, NewValidationError("quantity", "must be >= 1").IsValidation())
	assert.True(t, NewPersistenceError("save", stderrors.New("disk full")).IsInternal())
	assert.False(t, NewAlreadyJoinedError("g", "u").IsInternal())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewTelegramAPIError("sendMessage", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "TELEGRAM_API_ERROR")
	assert.Equal(t, "sendMessage", err.Details["operation"])
}

func TestEnvelopeFields(t *testing.T) {
	err := NewGiveawayNotFoundError("giveaway-9").WithRequestID("req-1")

	data, mErr := json.Marshal(err)
	require.NoError(t, mErr)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "GIVEAWAY_NOT_FOUND", fields["code"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.NotContains(t, fields, "context")
	assert.NotContains(t, fields, "Stack")
}
