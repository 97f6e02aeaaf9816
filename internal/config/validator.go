package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

var (
	telegramTokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)
	discordTokenPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{20,}\.[A-Za-z0-9_-]{4,}\.[A-Za-z0-9_-]{20,}$`)
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateTelegramToken validates a Telegram bot token
func (v *Validator) ValidateTelegramToken(token string) error {
	if token == "" {
		return fmt.Errorf("telegram bot token cannot be empty")
	}

	// Telegram bot tokens have format: <bot_id>:<token>
	if !telegramTokenPattern.MatchString(token) {
		return fmt.Errorf("invalid Telegram bot token format")
	}

	return nil
}

// ValidateDiscordToken validates a Discord bot token
func (v *Validator) ValidateDiscordToken(token string) error {
	if token == "" {
		return fmt.Errorf("discord bot token cannot be empty")
	}

	// Discord tokens are three dot-separated base64url segments
	if !discordTokenPattern.MatchString(strings.TrimPrefix(token, "Bot ")) {
		return fmt.Errorf("invalid Discord bot token format")
	}

	return nil
}

// ValidateColor validates an embed colour
func (v *Validator) ValidateColor(color int) error {
	if color < 0 || color > 0xFFFFFF {
		return fmt.Errorf("pagination.color must be a 24-bit RGB value, got %#x", color)
	}
	return nil
}

// ValidateCatalogPath validates the catalog file extension
func (v *Validator) ValidateCatalogPath(path string) error {
	if path == "" {
		return nil // Catalog is optional
	}

	switch {
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
	case strings.HasSuffix(path, ".db"), strings.HasSuffix(path, ".sqlite"):
	default:
		return fmt.Errorf("unsupported catalog file %s (must be .yaml, .yml, .db or .sqlite)", path)
	}
	return nil
}

// ValidateSchedule validates a cron refresh schedule
func (v *Validator) ValidateSchedule(expr string) error {
	if expr == "" {
		return nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid catalog.refresh_schedule: %w", err)
	}
	return nil
}

// ValidateAddr validates a host:port listen address
func (v *Validator) ValidateAddr(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	return nil
}

// ValidateEndpoint validates an OTLP collector URL
func (v *Validator) ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return nil
	}

	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid tracing.endpoint %q (must be an http or https URL)", endpoint)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := cfg.Validate(); err != nil {
		errors = append(errors, err)
	}

	// Validate token formats
	if cfg.Channels.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		if err := v.ValidateTelegramToken(cfg.Telegram.BotToken); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Channels.Discord.Enabled && cfg.Discord.BotToken != "" {
		if err := v.ValidateDiscordToken(cfg.Discord.BotToken); err != nil {
			errors = append(errors, err)
		}
	}

	if err := v.ValidateColor(cfg.Pagination.Color); err != nil {
		errors = append(errors, err)
	}

	// Validate catalog
	if err := v.ValidateCatalogPath(cfg.Catalog.Path); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateSchedule(cfg.Catalog.RefreshSchedule); err != nil {
		errors = append(errors, err)
	}

	if cfg.Queue.DedupeTTLSeconds < 0 {
		errors = append(errors, fmt.Errorf("queue.dedupe_ttl_seconds must be >= 0"))
	}
	if cfg.Queue.MaxConcurrent < 0 {
		errors = append(errors, fmt.Errorf("queue.max_concurrent must be >= 0"))
	}

	if cfg.Metrics.Enabled {
		if err := v.ValidateAddr(cfg.Metrics.Addr); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Tracing.Enabled {
		if err := v.ValidateEndpoint(cfg.Tracing.Endpoint); err != nil {
			errors = append(errors, err)
		}
	}

	// Validate logging
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
