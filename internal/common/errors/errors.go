package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode identifies the failure class of an AppError.
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"

	// Giveaways
	ErrCodeGiveawayNotFound ErrorCode = "GIVEAWAY_NOT_FOUND"
	ErrCodeAlreadyJoined    ErrorCode = "ALREADY_JOINED"

	// Chat platform
	ErrCodeChannelNotFound    ErrorCode = "CHANNEL_NOT_FOUND"
	ErrCodeMessageNotFound    ErrorCode = "MESSAGE_NOT_FOUND"
	ErrCodeNotificationFailed ErrorCode = "NOTIFICATION_FAILED"
	ErrCodeTelegramAPI        ErrorCode = "TELEGRAM_API_ERROR"

	// Storage
	ErrCodePersistence ErrorCode = "PERSISTENCE_ERROR"
)

// AppError is a typed application error.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Stack     []string               `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether the error belongs to the not-found family.
func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound ||
		e.Code == ErrCodeGiveawayNotFound ||
		e.Code == ErrCodeChannelNotFound ||
		e.Code == ErrCodeMessageNotFound
}

func (e *AppError) IsValidation() bool {
	return e.Code == ErrCodeValidation
}

func (e *AppError) IsUnauthorized() bool {
	return e.Code == ErrCodeUnauthorized || e.Code == ErrCodeForbidden
}

// IsInternal reports whether the error should surface as a generic failure.
func (e *AppError) IsInternal() bool {
	return e.Code == ErrCodeInternal ||
		e.Code == ErrCodePersistence ||
		e.Code == ErrCodeTelegramAPI
}

func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// New creates an AppError and captures the caller stack.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Stack:     getStackTrace(),
	}
}

// Wrap attaches a code and message to an existing error.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

func getStackTrace() []string {
	var stack []string
	for i := 2; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		if strings.Contains(fn.Name(), "internal/common/errors") {
			continue
		}
		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		if len(stack) >= 10 {
			break
		}
	}
	return stack
}

func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

func NewGiveawayNotFoundError(query string) *AppError {
	return New(ErrCodeGiveawayNotFound, fmt.Sprintf("Giveaway not found: %s", query)).
		WithDetail("query", query)
}

func NewAlreadyJoinedError(giveawayID, userID string) *AppError {
	return New(ErrCodeAlreadyJoined, "User already participates in this giveaway").
		WithDetail("giveaway_id", giveawayID).
		WithDetail("user_id", userID)
}

func NewChannelNotFoundError(channelID string) *AppError {
	return New(ErrCodeChannelNotFound, fmt.Sprintf("Channel not accessible: %s", channelID)).
		WithDetail("channel_id", channelID)
}

func NewMessageNotFoundError(channelID, messageID string) *AppError {
	return New(ErrCodeMessageNotFound, fmt.Sprintf("Message not found: %s", messageID)).
		WithDetail("channel_id", channelID).
		WithDetail("message_id", messageID)
}

func NewNotificationError(userID string, err error) *AppError {
	return Wrap(err, ErrCodeNotificationFailed, fmt.Sprintf("Direct notification failed for %s", userID)).
		WithDetail("user_id", userID)
}

func NewPersistenceError(operation string, err error) *AppError {
	return Wrap(err, ErrCodePersistence, fmt.Sprintf("Storage operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewTelegramAPIError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeTelegramAPI, fmt.Sprintf("Telegram API operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewUnauthorizedError(reason string) *AppError {
	return New(ErrCodeUnauthorized, fmt.Sprintf("Unauthorized: %s", reason)).
		WithDetail("reason", reason)
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err == nil {
		return nil, false
	}
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err's chain contains an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
