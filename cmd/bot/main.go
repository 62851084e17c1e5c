package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"giveaway-bot/internal/common/config"
	"giveaway-bot/internal/common/logger"
	"giveaway-bot/internal/domain/giveaway"
	"giveaway-bot/internal/handler"
	httpapi "giveaway-bot/internal/http"
	botmw "giveaway-bot/internal/middleware"
	"giveaway-bot/internal/platform/db"
	redisp "giveaway-bot/internal/platform/redis"
	"giveaway-bot/internal/platform/telegram"
	filestore "giveaway-bot/internal/repository/file"
	pgstore "giveaway-bot/internal/repository/postgres"
	redisstore "giveaway-bot/internal/repository/redis"
	"giveaway-bot/internal/scheduler"
	giveawaysvc "giveaway-bot/internal/service/giveaway"
	"giveaway-bot/internal/utils/clock"
	"giveaway-bot/internal/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	logger.Init(logger.Options{Service: "giveaway-bot", Level: level, Pretty: cfg.LogPretty})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("giveaway bot stopped")
	}
	log.Info().Msg("giveaway bot exited")
}

func run(ctx context.Context, cfg *config.Config) error {
	var rdb *goredis.Client
	if cfg.NeedsRedis() {
		var err error
		rdb, err = redisp.Open(ctx, redisp.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
	}

	store, closeStore, err := openStore(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	defer closeStore()

	b, err := bot.New(cfg.Telegram.BotToken,
		bot.WithMiddlewares(
			botmw.Recover(logger.Component("bot")),
			botmw.Logging(logger.Component("bot")),
		),
		bot.WithDefaultHandler(func(context.Context, *bot.Bot, *models.Update) {}),
		bot.WithErrorsHandler(func(err error) {
			log.Error().Err(err).Str("component", "bot").Msg("telegram polling error")
		}),
	)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	presenter := telegram.NewPresenter(b, telegram.Options{
		SendRate: cfg.Telegram.SendRatePerSec,
		Burst:    cfg.Telegram.SendBurst,
		Logger:   logger.Component("telegram"),
	})

	timers := scheduler.New(clock.Real{}, logger.Component("scheduler"))
	engine := giveawaysvc.New(giveawaysvc.Options{
		Store:     store,
		Presenter: presenter,
		Timers:    timers,
		Clock:     clock.Real{},
		Channels: giveawaysvc.Channels{
			Giveaways:     cfg.Channels.Giveaways,
			Winners:       cfg.Channels.Winners,
			Announcements: cfg.Channels.Announcements,
			Tickets:       cfg.Channels.Tickets,
		},
		DefaultMinParticipants: cfg.Giveaway.DefaultMinParticipants,
		Logger:                 logger.Component("engine"),
	})
	if err := engine.Restore(ctx); err != nil {
		return fmt.Errorf("restore giveaways: %w", err)
	}

	handler.New(engine, b, cfg.IsAdmin, logger.Component("handler")).Register(b)

	if cfg.Interactions.StreamEnabled {
		w := workers.NewRedisStreamWorker(rdb, engine, workers.StreamOptions{
			Stream: cfg.Interactions.StreamKey,
			Group:  cfg.Interactions.ConsumerGroup,
		}, logger.Component("stream"))
		go w.Start(ctx)
	}

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: httpapi.NewRouter(httpapi.Options{
			Giveaways:   engine,
			Store:       store,
			BotToken:    cfg.Telegram.BotToken,
			InitDataTTL: cfg.Telegram.InitDataTTL,
			Origins:     cfg.Server.Origin,
			IsAdmin:     cfg.IsAdmin,
			Debug:       cfg.Debug,
			Logger:      logger.Component("http"),
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	if cfg.Telegram.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			log.Warn().Err(err).Msg("dropping pending updates failed")
		}
	}

	log.Info().Int("active_giveaways", len(engine.Active())).Msg("bot polling started")
	b.Start(ctx)

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server forced to shutdown")
	}
	if err := engine.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("expiry timers did not drain")
	}
	return nil
}

// openStore builds the persistence backend selected by STORAGE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, rdb *goredis.Client) (giveaway.Store, func(), error) {
	noop := func() {}

	switch cfg.Storage.Driver {
	case config.StorageRedis:
		return redisstore.New(rdb, logger.Component("store")), noop, nil

	case config.StoragePostgres:
		if cfg.Storage.DBAutoMigrate {
			if err := pgstore.Migrate(cfg.Storage.DatabaseURL, logger.Component("migrate")); err != nil {
				return nil, noop, err
			}
		}
		conn, err := db.Open(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		return pgstore.New(conn, logger.Component("store")), func() { _ = conn.Close() }, nil

	default:
		s, err := filestore.New(cfg.Storage.DataDir, logger.Component("store"))
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	}
}
