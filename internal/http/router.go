// Package http serves health, metrics and the Mini App giveaway API.
package http

import (
	"context"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	mw "giveaway-bot/internal/common/middleware"
	"giveaway-bot/internal/domain/giveaway"
	giveawaysvc "giveaway-bot/internal/service/giveaway"
)

// GiveawayService is the engine surface exposed over HTTP.
type GiveawayService interface {
	Active() []giveaway.Giveaway
	Get(id string) (giveaway.Giveaway, error)
	Join(ctx context.Context, giveawayID, userID string) (giveaway.Giveaway, error)
	Create(ctx context.Context, in giveawaysvc.CreateInput) (giveaway.Giveaway, error)
}

var _ GiveawayService = (*giveawaysvc.Engine)(nil)

// Pinger reports storage health for /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Giveaways   GiveawayService
	Store       Pinger
	BotToken    string
	InitDataTTL time.Duration
	// Origins is a comma separated CORS allow list; "*" allows any origin.
	Origins string
	IsAdmin func(int64) bool
	Debug   bool
	Logger  zerolog.Logger
}

// NewRouter builds the gin engine with every route and middleware wired.
func NewRouter(opts Options) *gin.Engine {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		mw.RequestID(),
		mw.Logger(opts.Logger),
		mw.ErrorHandler(opts.Logger),
		mw.Errors(opts.Logger),
		cors.New(corsConfig(opts.Origins)),
	)

	health := &healthHandlers{store: opts.Store}
	r.GET("/health", health.health)
	r.GET("/live", health.health)
	r.GET("/ready", health.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	gh := &giveawayHandlers{service: opts.Giveaways}
	v1 := r.Group("/api/v1", mw.TelegramInitData(opts.BotToken, opts.InitDataTTL, opts.Logger))
	v1.GET("/giveaways", gh.listActive)
	v1.GET("/giveaways/:id", gh.getByID)
	v1.POST("/giveaways/:id/join", gh.join)
	v1.POST("/giveaways", mw.RequireAdmin(opts.IsAdmin, opts.Logger), gh.create)

	return r
}

func corsConfig(origins string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", mw.InitDataHeader, mw.RequestIDHeader},
		ExposeHeaders: []string{mw.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	var list []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			list = append(list, o)
		}
	}
	if len(list) == 0 || (len(list) == 1 && list[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = list
	}
	return cfg
}
