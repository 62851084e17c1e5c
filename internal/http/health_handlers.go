package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "giveaway-bot/internal/common/errors"
)

type healthHandlers struct {
	store Pinger
}

func (h *healthHandlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ready fails while the persistence backend is unreachable.
func (h *healthHandlers) ready(c *gin.Context) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			_ = c.Error(apperrors.NewPersistenceError("ping", err))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
