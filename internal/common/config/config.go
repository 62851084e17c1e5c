package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

type Config struct {
	Debug     bool   `env:"DEBUG" envDefault:"false"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"true"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"3000"`
		Origin string `env:"ORIGIN" envDefault:"*"`
	}

	Telegram struct {
		BotToken string  `env:"BOT_TOKEN,required,notEmpty"`
		AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`
		// TTL for Mini App init-data, 0 disables the expiry check
		InitDataTTL        time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`
		DropPendingUpdates bool          `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`
		// Outbound pacing, Telegram allows roughly 30 messages per second per bot
		SendRatePerSec float64 `env:"TELEGRAM_SEND_RATE" envDefault:"25"`
		SendBurst      int     `env:"TELEGRAM_SEND_BURST" envDefault:"5"`
	}

	Channels struct {
		Giveaways     string `env:"GIVEAWAYS_CHANNEL_ID"`
		Winners       string `env:"WINNERS_CHANNEL_ID"`
		Announcements string `env:"ANNOUNCEMENTS_CHANNEL_ID"`
		Tickets       string `env:"TICKETS_CHANNEL_ID"`
	}

	Storage struct {
		Driver        string `env:"STORAGE_DRIVER" envDefault:"file"`
		DataDir       string `env:"DATA_DIR" envDefault:"./data"`
		DatabaseURL   string `env:"DATABASE_URL"`
		DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Interactions struct {
		StreamEnabled bool   `env:"INTERACTIONS_STREAM_ENABLED" envDefault:"false"`
		StreamKey     string `env:"INTERACTIONS_STREAM_KEY" envDefault:"giveaway:interactions"`
		ConsumerGroup string `env:"INTERACTIONS_CONSUMER_GROUP" envDefault:"giveaway_bot_consumers"`
	}

	Giveaway struct {
		DefaultMinParticipants int `env:"DEFAULT_MIN_PARTICIPANTS" envDefault:"3"`
	}
}

// Load reads .env (if present) and the process environment into Config.
func Load() (*Config, error) {
	// .env is optional, production sets variables directly
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageFile, StorageRedis:
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Interactions.StreamEnabled && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required when the interactions stream is enabled")
	}
	if c.Giveaway.DefaultMinParticipants < 1 {
		return fmt.Errorf("DEFAULT_MIN_PARTICIPANTS must be >= 1")
	}
	return nil
}

// IsAdmin reports whether the Telegram user may manage giveaways.
func (c *Config) IsAdmin(telegramID int64) bool {
	return slices.Contains(c.Telegram.AdminIDs, telegramID)
}

// NeedsRedis reports whether any component requires a Redis connection.
func (c *Config) NeedsRedis() bool {
	return c.Storage.Driver == StorageRedis || c.Interactions.StreamEnabled
}
