package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultDatabaseURL   = "todo_notes.db"
	MinSchedulerInterval = time.Second
)

// Config keeps runtime settings for the bot, the HTTP API and the store.
type Config struct {
	TelegramToken        string
	BotDisabled          bool
	DatabaseURL          string
	RedisURL             string
	HTTPAddr             string
	StoreLatency         time.Duration
	NoteAutosaveDelay    time.Duration
	ReminderScanInterval time.Duration
	AutoThemeInterval    time.Duration
	AutoTheme            bool
	OwnerChatID          int64
	Debug                bool
}

// fileConfig mirrors Config in the optional TOML file. Durations are strings like "30s".
type fileConfig struct {
	TelegramToken        string `toml:"telegram_token"`
	BotDisabled          *bool  `toml:"bot_disabled"`
	DatabaseURL          string `toml:"database_url"`
	RedisURL             string `toml:"redis_url"`
	HTTPAddr             string `toml:"http_addr"`
	StoreLatency         string `toml:"store_latency"`
	NoteAutosaveDelay    string `toml:"note_autosave_delay"`
	ReminderScanInterval string `toml:"reminder_scan_interval"`
	AutoThemeInterval    string `toml:"auto_theme_interval"`
	AutoTheme            *bool  `toml:"auto_theme"`
	OwnerChatID          int64  `toml:"owner_chat_id"`
	Debug                *bool  `toml:"debug"`
}

func defaultConfig() Config {
	return Config{
		DatabaseURL:          DefaultDatabaseURL,
		NoteAutosaveDelay:    800 * time.Millisecond,
		ReminderScanInterval: 30 * time.Second,
		AutoThemeInterval:    60 * time.Second,
	}
}

// Load reads .env, then the CONFIG_FILE TOML file, then environment variables.
// Later sources win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaultConfig()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := validateIntervals(cfg); err != nil {
		return cfg, err
	}
	if cfg.TelegramToken == "" && !cfg.BotDisabled {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return cfg, nil
}

// validateIntervals rejects periods the scheduler cannot run; it ticks in whole seconds.
func validateIntervals(cfg Config) error {
	for key, d := range map[string]time.Duration{
		"REMINDER_SCAN_INTERVAL": cfg.ReminderScanInterval,
		"AUTO_THEME_INTERVAL":    cfg.AutoThemeInterval,
	} {
		if d < MinSchedulerInterval {
			return fmt.Errorf("%s: must be at least %s, got %s", key, MinSchedulerInterval, d)
		}
	}
	return nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.TelegramToken, fc.TelegramToken)
	setString(&cfg.DatabaseURL, fc.DatabaseURL)
	setString(&cfg.RedisURL, fc.RedisURL)
	setString(&cfg.HTTPAddr, fc.HTTPAddr)
	if fc.BotDisabled != nil {
		cfg.BotDisabled = *fc.BotDisabled
	}
	if fc.AutoTheme != nil {
		cfg.AutoTheme = *fc.AutoTheme
	}
	if fc.Debug != nil {
		cfg.Debug = *fc.Debug
	}
	if fc.OwnerChatID != 0 {
		cfg.OwnerChatID = fc.OwnerChatID
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"store_latency", fc.StoreLatency, &cfg.StoreLatency},
		{"note_autosave_delay", fc.NoteAutosaveDelay, &cfg.NoteAutosaveDelay},
		{"reminder_scan_interval", fc.ReminderScanInterval, &cfg.ReminderScanInterval},
		{"auto_theme_interval", fc.AutoThemeInterval, &cfg.AutoThemeInterval},
	}
	for _, d := range durations {
		if err := setDuration(d.dst, d.key, d.raw); err != nil {
			return err
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.TelegramToken, os.Getenv("TELEGRAM_TOKEN"))
	setString(&cfg.DatabaseURL, os.Getenv("DATABASE_URL"))
	setString(&cfg.RedisURL, os.Getenv("REDIS_URL"))
	setString(&cfg.HTTPAddr, os.Getenv("HTTP_ADDR"))

	for key, dst := range map[string]*bool{
		"BOT_DISABLED": &cfg.BotDisabled,
		"AUTO_THEME":   &cfg.AutoTheme,
		"DEBUG":        &cfg.Debug,
	} {
		if err := setBool(dst, key, os.Getenv(key)); err != nil {
			return err
		}
	}

	for key, dst := range map[string]*time.Duration{
		"STORE_LATENCY":          &cfg.StoreLatency,
		"NOTE_AUTOSAVE_DELAY":    &cfg.NoteAutosaveDelay,
		"REMINDER_SCAN_INTERVAL": &cfg.ReminderScanInterval,
		"AUTO_THEME_INTERVAL":    &cfg.AutoThemeInterval,
	} {
		if err := setDuration(dst, key, os.Getenv(key)); err != nil {
			return err
		}
	}

	if raw := strings.TrimSpace(os.Getenv("OWNER_CHAT_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("OWNER_CHAT_ID: %w", err)
		}
		cfg.OwnerChatID = id
	}
	return nil
}

func setString(dst *string, raw string) {
	if v := strings.TrimSpace(raw); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}

// setDuration accepts Go durations ("800ms") or a bare number of milliseconds.
func setDuration(dst *time.Duration, key, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		if ms < 0 {
			return fmt.Errorf("%s: must not be negative", key)
		}
		*dst = time.Duration(ms) * time.Millisecond
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return fmt.Errorf("%s: must not be negative", key)
	}
	*dst = d
	return nil
}
