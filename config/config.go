// Package config reads server settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every server setting
type Config struct {
	Addr      string
	LogLevel  string
	LogFormat string

	SnapshotBackend string
	DataDir         string
	SQLitePath      string

	HistoryBackend string
	HistoryDSN     string

	ReconcileInterval   time.Duration
	ActionTimeout       time.Duration
	TimeBank            int
	ShowdownDelay       time.Duration
	NextHandDelay       time.Duration
	ReservationDuration time.Duration

	AllowedOrigins []string
}

// Load reads the configuration. A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (Config, error) {
	var err error
	cfg := Config{
		Addr:            strDef("POKER_ADDR", ":7777"),
		LogLevel:        strDef("POKER_LOG_LEVEL", "info"),
		LogFormat:       strDef("POKER_LOG_FORMAT", "json"),
		SnapshotBackend: strDef("POKER_SNAPSHOT_BACKEND", "file"),
		DataDir:         strDef("POKER_DATA_DIR", "./data/rooms"),
		SQLitePath:      strDef("POKER_SQLITE_PATH", "./data/poker.db"),
		HistoryBackend:  strDef("POKER_HISTORY_BACKEND", "memory"),
		HistoryDSN:      os.Getenv("POKER_HISTORY_DSN"),
		AllowedOrigins:  listDef("POKER_ALLOWED_ORIGINS"),
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"POKER_RECONCILE_INTERVAL", 5 * time.Second, &cfg.ReconcileInterval},
		{"POKER_ACTION_TIMEOUT", 30 * time.Second, &cfg.ActionTimeout},
		{"POKER_SHOWDOWN_DELAY", 3 * time.Second, &cfg.ShowdownDelay},
		{"POKER_NEXT_HAND_DELAY", 2 * time.Second, &cfg.NextHandDelay},
		{"POKER_RESERVATION_DURATION", 60 * time.Second, &cfg.ReservationDuration},
	}
	for _, d := range durations {
		if *d.dst, err = durationDef(d.key, d.def); err != nil {
			return Config{}, err
		}
	}
	if cfg.TimeBank, err = atoiDef("POKER_TIME_BANK", 30); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("config: POKER_LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	switch c.SnapshotBackend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("config: POKER_SNAPSHOT_BACKEND must be file or sqlite, got %q", c.SnapshotBackend)
	}
	switch c.HistoryBackend {
	case "memory", "sqlite", "none":
	case "postgres":
		if c.HistoryDSN == "" {
			return fmt.Errorf("config: POKER_HISTORY_BACKEND=postgres requires POKER_HISTORY_DSN")
		}
	default:
		return fmt.Errorf("config: POKER_HISTORY_BACKEND must be memory, sqlite, postgres or none, got %q", c.HistoryBackend)
	}
	if c.ReconcileInterval <= 0 {
		return fmt.Errorf("config: POKER_RECONCILE_INTERVAL must be positive")
	}
	if c.TimeBank < 0 {
		return fmt.Errorf("config: POKER_TIME_BANK must not be negative")
	}
	return nil
}

func strDef(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func atoiDef(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func durationDef(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func listDef(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
