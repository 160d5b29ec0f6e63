package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	if cfg.Addr != ":3001" {
		t.Errorf("default addr = %q", cfg.Addr)
	}
	if cfg.RoleRevealDelayMs != 2000 || cfg.ClueDurationMs != 60000 || cfg.NextRoundDelayMs != 3000 {
		t.Errorf("default timings = %d/%d/%d", cfg.RoleRevealDelayMs, cfg.ClueDurationMs, cfg.NextRoundDelayMs)
	}
	if cfg.clueDuration() != 60*time.Second {
		t.Errorf("clueDuration = %v", cfg.clueDuration())
	}
}

func TestLoadConfigEnvLayer(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("FRONTEND_URL", "https://game.example.com")
	t.Setenv("CLUE_DURATION_MS", "1500")
	t.Setenv("LOG_WS", "1")

	cfg := loadConfig(filepath.Join(t.TempDir(), "absent.json"))
	if cfg.Addr != ":9999" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.Origin != "https://game.example.com" {
		t.Errorf("origin = %q", cfg.Origin)
	}
	if cfg.ClueDurationMs != 1500 {
		t.Errorf("clue duration = %d", cfg.ClueDurationMs)
	}
	if !cfg.LogWS {
		t.Error("LOG_WS=1 not applied")
	}
}

func TestLoadConfigIgnoresBadEnvInt(t *testing.T) {
	t.Setenv("NEXT_ROUND_DELAY_MS", "soon")
	cfg := loadConfig(filepath.Join(t.TempDir(), "absent.json"))
	if cfg.NextRoundDelayMs != defaultConfig().NextRoundDelayMs {
		t.Errorf("bad env int overrode default: %d", cfg.NextRoundDelayMs)
	}
}

// Only keys present in the JSON file override the env layer.
func TestLoadConfigFileOverridesEnv(t *testing.T) {
	t.Setenv("ADDR", ":4000")
	t.Setenv("FRONTEND_URL", "http://env.example.com")

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"addr": ":5000", "role_reveal_delay_ms": 10}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := loadConfig(path)
	if cfg.Addr != ":5000" {
		t.Errorf("file addr did not win: %q", cfg.Addr)
	}
	if cfg.Origin != "http://env.example.com" {
		t.Errorf("env origin dropped: %q", cfg.Origin)
	}
	if cfg.RoleRevealDelayMs != 10 {
		t.Errorf("file timing not applied: %d", cfg.RoleRevealDelayMs)
	}
	if cfg.ClueDurationMs != defaultConfig().ClueDurationMs {
		t.Errorf("untouched key changed: %d", cfg.ClueDurationMs)
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := loadConfig(path)
	if cfg.Addr != defaultConfig().Addr {
		t.Errorf("malformed file mutated config: %q", cfg.Addr)
	}
}
