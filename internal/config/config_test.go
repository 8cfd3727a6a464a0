package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var signEnvKeys = []string{
	"SIGN_ADDR",
	"SIGN_TABLE_PATH",
	"SIGN_MODEL_PATH",
	"SIGN_STEP_SIZE",
	"SIGN_HOLD",
	"SIGN_TICK_RATE",
	"SIGN_RESET_ON_PREEMPT",
	"SIGN_MAX_TEXT_BYTES",
	"SIGN_WS_PING_INTERVAL",
	"SIGN_WS_WRITE_TIMEOUT",
	"SIGN_DATABASE_URL",
	"GEMINI_API_KEY",
	"SIGN_GLOSS_MODEL",
	"SIGN_LOG_LEVEL",
	"SIGN_SHUTDOWN_GRACE",
}

func clearSignEnv(t *testing.T) {
	t.Helper()
	for _, key := range signEnvKeys {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearSignEnv(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Addr != ":8090" {
		t.Fatalf("Addr = %q, want :8090", cfg.Addr)
	}
	if cfg.StepSize != 0.1 {
		t.Fatalf("StepSize = %v, want 0.1", cfg.StepSize)
	}
	if cfg.Hold != 800*time.Millisecond {
		t.Fatalf("Hold = %v, want 800ms", cfg.Hold)
	}
	if cfg.TickRate != 60 {
		t.Fatalf("TickRate = %v, want 60", cfg.TickRate)
	}
	if cfg.ResetOnPreempt {
		t.Fatal("ResetOnPreempt = true, want false")
	}
	if cfg.MaxTextBytes != 4096 {
		t.Fatalf("MaxTextBytes = %d, want 4096", cfg.MaxTextBytes)
	}
	if cfg.GlossModel != "gemini-2.5-flash" {
		t.Fatalf("GlossModel = %q", cfg.GlossModel)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.DatabaseURL != "" || cfg.GeminiAPIKey != "" || cfg.TablePath != "" || cfg.ModelPath != "" {
		t.Fatalf("optional settings not empty: %+v", cfg)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearSignEnv(t)
	t.Setenv("SIGN_STEP_SIZE", "0.05")
	t.Setenv("SIGN_HOLD", "250")
	t.Setenv("SIGN_TICK_RATE", "30")
	t.Setenv("SIGN_RESET_ON_PREEMPT", "yes")
	t.Setenv("SIGN_LOG_LEVEL", "debug")
	t.Setenv("SIGN_WS_PING_INTERVAL", "3s")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.StepSize != 0.05 {
		t.Fatalf("StepSize = %v", cfg.StepSize)
	}
	if cfg.Hold != 250*time.Millisecond {
		t.Fatalf("Hold = %v, want bare integer read as ms", cfg.Hold)
	}
	if cfg.TickRate != 30 || !cfg.ResetOnPreempt || cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.WSPingInterval != 3*time.Second {
		t.Fatalf("WSPingInterval = %v", cfg.WSPingInterval)
	}
}

func TestLoadFromEnv_Validation(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SIGN_STEP_SIZE", "0"},
		{"SIGN_STEP_SIZE", "1.5"},
		{"SIGN_HOLD", "11s"},
		{"SIGN_TICK_RATE", "0"},
		{"SIGN_TICK_RATE", "500"},
		{"SIGN_MAX_TEXT_BYTES", "-1"},
		{"SIGN_LOG_LEVEL", "chatty"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearSignEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := LoadFromEnv()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Fatalf("error %q does not name %s", err, tt.key)
			}
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	clearSignEnv(t)
	os.Unsetenv("SIGN_ADDR")

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("SIGN_ADDR=:9999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("SIGN_ADDR") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("Addr = %q, want value from .env", cfg.Addr)
	}
}

func TestLoadToleratesMissingDotEnv(t *testing.T) {
	clearSignEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Config{LogLevel: slog.LevelWarn}.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("log output = %q", buf.String())
	}
}
