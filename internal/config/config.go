package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the main pagebot configuration
type Config struct {
	// Platform credentials
	Telegram TelegramConfig `json:"telegram" mapstructure:"telegram"`
	Discord  DiscordConfig  `json:"discord" mapstructure:"discord"`

	// Channels
	Channels ChannelsConfig `json:"channels" mapstructure:"channels"`

	// Pagination defaults applied to every session
	Pagination PaginationConfig `json:"pagination" mapstructure:"pagination"`

	// Character catalog
	Catalog CatalogConfig `json:"catalog" mapstructure:"catalog"`

	// Command queue
	Queue QueueConfig `json:"queue" mapstructure:"queue"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Tracing
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken string `json:"bot_token" mapstructure:"bot_token"`
	Debug    bool   `json:"debug" mapstructure:"debug"`
}

// DiscordConfig holds Discord bot configuration
type DiscordConfig struct {
	BotToken string `json:"bot_token" mapstructure:"bot_token"`
	Prefix   string `json:"prefix" mapstructure:"prefix"`
}

// ChannelsConfig holds channel configuration
type ChannelsConfig struct {
	Telegram ChannelConfig `json:"telegram" mapstructure:"telegram"`
	Discord  ChannelConfig `json:"discord" mapstructure:"discord"`
}

// ChannelConfig represents a channel configuration
type ChannelConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// PaginationConfig holds session defaults
type PaginationConfig struct {
	PerPage        int  `json:"per_page" mapstructure:"per_page"`
	TimeoutSeconds int  `json:"timeout_seconds" mapstructure:"timeout_seconds"`
	Numerate       bool `json:"numerate" mapstructure:"numerate"`
	Color          int  `json:"color" mapstructure:"color"`
	JumpControls   bool `json:"jump_controls" mapstructure:"jump_controls"`
}

// Timeout returns the idle timeout as a duration
func (p PaginationConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// CatalogConfig holds the character catalog source
type CatalogConfig struct {
	Path            string `json:"path" mapstructure:"path"` // .yaml/.yml or .db/.sqlite
	Watch           bool   `json:"watch" mapstructure:"watch"`
	RefreshSchedule string `json:"refresh_schedule" mapstructure:"refresh_schedule"` // cron expression, empty disables
}

// QueueConfig holds command queue settings
type QueueConfig struct {
	DedupeTTLSeconds int `json:"dedupe_ttl_seconds" mapstructure:"dedupe_ttl_seconds"`
	MaxConcurrent    int `json:"max_concurrent" mapstructure:"max_concurrent"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
}

// MetricsConfig holds the metrics HTTP server settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Endpoint string `json:"endpoint" mapstructure:"endpoint"` // OTLP/HTTP collector URL
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Discord: DiscordConfig{
			Prefix: "/",
		},
		Channels: ChannelsConfig{
			Telegram: ChannelConfig{Enabled: true},
			Discord:  ChannelConfig{Enabled: false},
		},
		Pagination: PaginationConfig{
			PerPage:        10,
			TimeoutSeconds: 120,
			Numerate:       true,
		},
		Catalog: CatalogConfig{
			Watch: true,
		},
		Queue: QueueConfig{
			DedupeTTLSeconds: 300,
			MaxConcurrent:    4,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
			Pretty:    true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Pagination.PerPage <= 0 {
		return fmt.Errorf("pagination.per_page must be positive, got %d", c.Pagination.PerPage)
	}
	if c.Pagination.TimeoutSeconds <= 0 {
		return fmt.Errorf("pagination.timeout_seconds must be positive, got %d", c.Pagination.TimeoutSeconds)
	}

	if !c.Channels.Telegram.Enabled && !c.Channels.Discord.Enabled {
		return fmt.Errorf("at least one channel must be enabled")
	}

	// Validate Telegram if enabled
	if c.Channels.Telegram.Enabled && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required when Telegram channel is enabled")
	}

	// Validate Discord if enabled
	if c.Channels.Discord.Enabled {
		if c.Discord.BotToken == "" {
			return fmt.Errorf("discord bot token is required when Discord channel is enabled")
		}
		if c.Discord.Prefix == "" {
			return fmt.Errorf("discord prefix cannot be empty")
		}
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}

	return nil
}
