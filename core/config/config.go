// Package config holds the Telegram, logging and rate limit settings shared by
// the runtime packages under core/.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Update delivery modes.
const (
	RunModeLongpoll = "longpoll"
	RunModeWebhook  = "webhook"
)

// Update kinds accepted by rate_limit.exclude_updates.
const (
	UpdateMessage  = "message"
	UpdateCallback = "callback"
)

// Config is the core section of the bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// TelegramConfig selects the bot and how it receives updates.
type TelegramConfig struct {
	Token           string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode         string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	LongPollTimeout int    `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig is only read in webhook mode.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
	// SecretToken is echoed by Telegram in X-Telegram-Bot-Api-Secret-Token.
	SecretToken string `yaml:"secret_token" envconfig:"WEBHOOK_SECRET_TOKEN"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	// DebugSample keeps one in N per-update debug lines; 0 and 1 keep all.
	DebugSample int    `yaml:"debug_sample" envconfig:"LOG_DEBUG_SAMPLE"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	File        string `yaml:"file" envconfig:"LOG_FILE"`
}

// RateLimitConfig throttles updates per user. Kinds listed in ExcludeUpdates
// are never throttled.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Excluded reports whether updates of kind bypass the rate limit.
func (r RateLimitConfig) Excluded(kind string) bool {
	return slices.Contains(r.ExcludeUpdates, kind)
}

// Decode fills out from .env, then the YAML file at path, then the process
// environment. With allowMissing a missing file is not an error.
func Decode(path string, allowMissing bool, out any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: load .env: %w", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil && !(allowMissing && errors.Is(err, os.ErrNotExist)) {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if len(raw) > 0 {
		if err := yaml.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := envconfig.Process("", out); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

// Load decodes and normalizes a core-only configuration file.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := Decode(path, false, cfg); err != nil {
		return nil, err
	}
	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize validates cfg in place and applies defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}

	tg := &cfg.Telegram
	tg.Token = strings.TrimSpace(tg.Token)
	if tg.Token == "" {
		return errors.New("config: telegram.token is required (BOT_TOKEN)")
	}

	mode := strings.ToLower(strings.TrimSpace(tg.RunMode))
	switch mode {
	case "", "polling", RunModeLongpoll:
		if tg.LongPollTimeout < 0 {
			return errors.New("config: telegram.longpoll_timeout_seconds must be >= 0")
		}
		mode = RunModeLongpoll
	case RunModeWebhook:
		if err := cfg.Webhook.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("config: unknown telegram.run_mode %q (want longpoll or webhook)", tg.RunMode)
	}
	tg.RunMode = mode

	if cfg.Logging.DebugSample < 0 {
		return errors.New("config: logging.debug_sample must be >= 0")
	}

	rl := &cfg.RateLimit
	if rl.IntervalMS < 0 {
		return errors.New("config: rate_limit.interval_ms must be >= 0")
	}
	kinds := rl.ExcludeUpdates[:0]
	for _, v := range rl.ExcludeUpdates {
		kind := strings.ToLower(strings.TrimSpace(v))
		switch kind {
		case "":
			continue
		case UpdateMessage, UpdateCallback:
			kinds = append(kinds, kind)
		default:
			return fmt.Errorf("config: rate_limit.exclude_updates: unknown kind %q", v)
		}
	}
	rl.ExcludeUpdates = kinds
	return nil
}

func (w WebhookConfig) validate() error {
	switch {
	case strings.TrimSpace(w.URL) == "":
		return errors.New("config: webhook.url is required in webhook mode")
	case strings.TrimSpace(w.Listen) == "":
		return errors.New("config: webhook.listen is required in webhook mode")
	case w.Port <= 0:
		return errors.New("config: webhook.port must be > 0 in webhook mode")
	}
	return nil
}
