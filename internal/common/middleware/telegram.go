package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"giveaway-bot/internal/common/errors"
)

const (
	InitDataHeader = "X-Telegram-Init-Data"
	UserKey        = "user"
	UserIDKey      = "user_id"
)

// TelegramInitData authenticates Mini App requests. Init data is read from
// the X-Telegram-Init-Data header, then the legacy init_data header, then the
// init_data query parameter. ttl of 0 disables the expiry check.
func TelegramInitData(token string, ttl time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(InitDataHeader)
		if raw == "" {
			raw = c.GetHeader("init_data")
		}
		if raw == "" {
			raw = c.Query("init_data")
		}
		if raw == "" {
			sendErrorResponse(c, errors.NewUnauthorizedError("Telegram init data required"), log)
			return
		}

		if err := initdata.Validate(raw, token, ttl); err != nil {
			sendErrorResponse(c, errors.Wrap(err, errors.ErrCodeUnauthorized, "Invalid init data"), log)
			return
		}

		parsed, err := initdata.Parse(raw)
		if err != nil {
			sendErrorResponse(c, errors.Wrap(err, errors.ErrCodeValidation, "Failed to parse init data"), log)
			return
		}
		if parsed.User.ID == 0 {
			sendErrorResponse(c, errors.NewUnauthorizedError("init data carries no user"), log)
			return
		}

		c.Set(UserKey, parsed.User)
		c.Set(UserIDKey, parsed.User.ID)
		c.Next()
	}
}
