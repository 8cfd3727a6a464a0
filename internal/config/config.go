package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr string

	// Content. Empty paths select the embedded table and the built-in rig.
	TablePath string
	ModelPath string

	// Playback.
	StepSize       float32
	Hold           time.Duration
	TickRate       float64
	ResetOnPreempt bool

	// Live websocket sessions.
	MaxTextBytes   int64
	WSPingInterval time.Duration
	WSWriteTimeout time.Duration

	// Empty selects the in-memory history store.
	DatabaseURL string

	// Empty disables Gemini glossing.
	GeminiAPIKey string
	GlossModel   string

	LogLevel      slog.Level
	ShutdownGrace time.Duration
}

// Load reads a .env file from the working directory when one exists, then the environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return LoadFromEnv()
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:           envOr("SIGN_ADDR", ":8090"),
		TablePath:      envOr("SIGN_TABLE_PATH", ""),
		ModelPath:      envOr("SIGN_MODEL_PATH", ""),
		StepSize:       float32(envFloat64Or("SIGN_STEP_SIZE", 0.1)),
		Hold:           envDurationOr("SIGN_HOLD", 800*time.Millisecond),
		TickRate:       envFloat64Or("SIGN_TICK_RATE", 60),
		ResetOnPreempt: envBoolOr("SIGN_RESET_ON_PREEMPT", false),
		MaxTextBytes:   envInt64Or("SIGN_MAX_TEXT_BYTES", 4096),
		WSPingInterval: envDurationOr("SIGN_WS_PING_INTERVAL", 20*time.Second),
		WSWriteTimeout: envDurationOr("SIGN_WS_WRITE_TIMEOUT", 5*time.Second),
		DatabaseURL:    envOr("SIGN_DATABASE_URL", ""),
		GeminiAPIKey:   envOr("GEMINI_API_KEY", ""),
		GlossModel:     envOr("SIGN_GLOSS_MODEL", "gemini-2.5-flash"),
		ShutdownGrace:  envDurationOr("SIGN_SHUTDOWN_GRACE", 10*time.Second),
	}

	level, err := parseLevel(envOr("SIGN_LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	if cfg.StepSize <= 0 || cfg.StepSize > 1 {
		return Config{}, fmt.Errorf("SIGN_STEP_SIZE must be in (0, 1]")
	}
	if cfg.Hold < 0 || cfg.Hold > 10*time.Second {
		return Config{}, fmt.Errorf("SIGN_HOLD must be between 0 and 10s")
	}
	if cfg.TickRate < 1 || cfg.TickRate > 240 {
		return Config{}, fmt.Errorf("SIGN_TICK_RATE must be in [1, 240]")
	}
	if cfg.MaxTextBytes <= 0 {
		return Config{}, fmt.Errorf("SIGN_MAX_TEXT_BYTES must be > 0")
	}
	if cfg.WSPingInterval <= 0 {
		return Config{}, fmt.Errorf("SIGN_WS_PING_INTERVAL must be > 0")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("SIGN_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGrace <= 0 {
		return Config{}, fmt.Errorf("SIGN_SHUTDOWN_GRACE must be > 0")
	}
	if strings.TrimSpace(cfg.GlossModel) == "" {
		return Config{}, fmt.Errorf("SIGN_GLOSS_MODEL must not be empty")
	}

	return cfg, nil
}

// NewLogger returns a text slog.Logger at the configured level.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("SIGN_LOG_LEVEL must be one of debug|info|warn|error")
	}
	return level, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envFloat64Or(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

// envDurationOr accepts Go durations ("800ms") and bare integers as milliseconds.
func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
