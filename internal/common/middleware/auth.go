package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"giveaway-bot/internal/common/errors"
)

// UserID returns the Telegram user id set by TelegramInitData.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// User returns the authenticated Telegram user.
func User(c *gin.Context) (initdata.User, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return initdata.User{}, false
	}
	u, ok := v.(initdata.User)
	return u, ok
}

// RequireAdmin rejects authenticated users that isAdmin does not accept.
func RequireAdmin(isAdmin func(int64) bool, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			sendErrorResponse(c, errors.NewUnauthorizedError("Telegram init data required"), log)
			return
		}
		if !isAdmin(id) {
			sendErrorResponse(c, errors.New(errors.ErrCodeForbidden, "Admin access required"), log)
			return
		}
		c.Next()
	}
}
