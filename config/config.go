// Package config loads settings from config.yaml, a .env file and
// ACASINHA_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	SinkPostgres = "postgres"
	SinkSQLite   = "sqlite"
)

type Config struct {
	DatabaseURL      string        `mapstructure:"database_url"`
	HTTPAddr         string        `mapstructure:"http_addr"`
	LogLevel         string        `mapstructure:"log_level"`
	ReminderInterval time.Duration `mapstructure:"reminder_interval"`
	DeliveryTimeout  time.Duration `mapstructure:"delivery_timeout"`
	EventBuffer      int           `mapstructure:"event_buffer"`
	ActivitySink     string        `mapstructure:"activity_sink"`
	SQLitePath       string        `mapstructure:"sqlite_path"`
	DiscordBotToken  string        `mapstructure:"discord_bot_token"`
	DiscordChannelID string        `mapstructure:"discord_channel_id"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("database_url", "host=localhost port=5432 user=postgres password=postgres dbname=office sslmode=disable")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("reminder_interval", time.Hour)
	v.SetDefault("delivery_timeout", 30*time.Second)
	v.SetDefault("event_buffer", 100)
	v.SetDefault("activity_sink", SinkPostgres)
	v.SetDefault("sqlite_path", "activity.db")
	v.SetDefault("discord_bot_token", "")
	v.SetDefault("discord_channel_id", "")
}

// Load reads path, or ./config.yaml when path is empty. A missing default
// config file or .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	defaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("ACASINHA")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	c.ActivitySink = strings.ToLower(c.ActivitySink)
	if c.ActivitySink != SinkPostgres && c.ActivitySink != SinkSQLite {
		return fmt.Errorf("activity_sink must be %q or %q, got %q", SinkPostgres, SinkSQLite, c.ActivitySink)
	}
	if c.DiscordBotToken != "" && c.DiscordChannelID == "" {
		return errors.New("discord_channel_id is required when discord_bot_token is set")
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("event_buffer must be positive, got %d", c.EventBuffer)
	}
	return nil
}

func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
