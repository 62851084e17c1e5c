package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"giveaway-bot/internal/common/errors"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// ErrorHandler recovers panics into an INTERNAL_ERROR response.
func ErrorHandler(log zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error().
			Str("request_id", getRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Str("stack", string(debug.Stack())).
			Msg("panic recovered")

		appErr := errors.New(errors.ErrCodeInternal, "Internal server error").
			WithDetail("panic", fmt.Sprintf("%v", recovered))
		sendErrorResponse(c, appErr, log)
	})
}

// Errors turns the last error attached with c.Error into the JSON envelope.
func Errors(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		appErr, ok := errors.AsAppError(err)
		if !ok {
			appErr = errors.Wrap(err, errors.ErrCodeInternal, "Handler error occurred")
		}
		sendErrorResponse(c, appErr, log)
	}
}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

type ErrorResponse struct {
	Success   bool             `json:"success"`
	Error     *errors.AppError `json:"error"`
	Timestamp time.Time        `json:"timestamp"`
	RequestID string           `json:"request_id"`
	Path      string           `json:"path,omitempty"`
	Method    string           `json:"method,omitempty"`
}

func sendErrorResponse(c *gin.Context, appErr *errors.AppError, log zerolog.Logger) {
	requestID := getRequestID(c)
	appErr.WithRequestID(requestID)

	logError(appErr, log, c)

	c.AbortWithStatusJSON(StatusCode(appErr), ErrorResponse{
		Success:   false,
		Error:     appErr,
		Timestamp: time.Now(),
		RequestID: requestID,
		Path:      c.Request.URL.Path,
		Method:    c.Request.Method,
	})
}

// StatusCode maps an error code onto the HTTP status it is served with.
func StatusCode(appErr *errors.AppError) int {
	switch appErr.Code {
	case errors.ErrCodeValidation:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeGiveawayNotFound, errors.ErrCodeChannelNotFound, errors.ErrCodeMessageNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden:
		return http.StatusForbidden
	case errors.ErrCodeAlreadyJoined:
		return http.StatusConflict
	case errors.ErrCodeTelegramAPI, errors.ErrCodeNotificationFailed:
		return http.StatusBadGateway
	case errors.ErrCodePersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func logError(appErr *errors.AppError, log zerolog.Logger, c *gin.Context) {
	var ev *zerolog.Event
	switch {
	case appErr.IsInternal():
		ev = log.Error()
	case appErr.IsUnauthorized():
		ev = log.Warn()
	default:
		ev = log.Info()
	}

	ev = ev.
		Str("request_id", getRequestID(c)).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("error_code", string(appErr.Code)).
		Str("error_message", appErr.Message)
	if userID, ok := UserID(c); ok {
		ev = ev.Int64("user_id", userID)
	}
	if len(appErr.Details) > 0 {
		ev = ev.Interface("details", appErr.Details)
	}
	if appErr.Cause != nil {
		ev = ev.AnErr("cause", appErr.Cause)
	}
	ev.Msg("request failed")
}

func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return "unknown"
}
