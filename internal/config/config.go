package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the bot.
type Config struct {
	DiscordToken        string        `mapstructure:"DISCORD_TOKEN"`
	GuildID             string        `mapstructure:"DISCORD_GUILD_ID"`
	Port                string        `mapstructure:"PORT"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	DeliveryTimeout     time.Duration `mapstructure:"DELIVERY_TIMEOUT"`
	NumWorkers          int           `mapstructure:"RELAY_WORKERS"`
	QueueSize           int           `mapstructure:"RELAY_QUEUE_SIZE"`
	CommandPrefix       string        `mapstructure:"COMMAND_PREFIX"`
	StatusText          string        `mapstructure:"STATUS_TEXT"`
	Banner              bool          `mapstructure:"BANNER"`
	WebhookAllowedHosts []string      `mapstructure:"WEBHOOK_ALLOWED_HOSTS"`
	RandomSeed          int64         `mapstructure:"RANDOM_SEED"`
}

var defaults = map[string]any{
	"DISCORD_TOKEN":         "",
	"DISCORD_GUILD_ID":      "",
	"PORT":                  "8080",
	"LOG_LEVEL":             "info",
	"DELIVERY_TIMEOUT":      "10s",
	"RELAY_WORKERS":         4,
	"RELAY_QUEUE_SIZE":      64,
	"COMMAND_PREFIX":        "!",
	"STATUS_TEXT":           "Your Messages",
	"BANNER":                true,
	"WEBHOOK_ALLOWED_HOSTS": []string{"discord.com", "discordapp.com", "ptb.discord.com", "canary.discord.com"},
	"RANDOM_SEED":           0,
}

// Load reads configuration from the environment, optionally layered over the
// file named by CONFIG_FILE.
func Load() (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.DeliveryTimeout <= 0 {
		return fmt.Errorf("DELIVERY_TIMEOUT must be positive (got %s)", c.DeliveryTimeout)
	}
	if c.NumWorkers < 1 {
		return fmt.Errorf("RELAY_WORKERS must be at least 1 (got %d)", c.NumWorkers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("RELAY_QUEUE_SIZE cannot be negative (got %d)", c.QueueSize)
	}
	if c.CommandPrefix == "" {
		return fmt.Errorf("COMMAND_PREFIX cannot be empty")
	}
	if len(c.WebhookAllowedHosts) == 0 {
		return fmt.Errorf("WEBHOOK_ALLOWED_HOSTS cannot be empty")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the slog level for LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown LOG_LEVEL %q", s)
	}
}
