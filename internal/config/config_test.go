package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
log:
  mode: prod
redis:
  addr: localhost:6379
  ttl: 15m
question_sets:
  ttl: 1h
favorites:
  timeout: 2s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Log.Mode != "prod" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if got := TTLDuration(cfg.QuestionSets.TTL, time.Minute); got != time.Hour {
		t.Fatalf("expected 1h question set ttl, got %s", got)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "favorites:\n  timeout: soon\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "favorites.timeout") {
		t.Fatalf("expected favorites.timeout error, got %v", err)
	}
}

func TestLoadRejectsNegativeDB(t *testing.T) {
	path := writeConfig(t, "redis:\n  db: -1\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for negative db")
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", 5*time.Second); got != 5*time.Second {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("bogus", 5*time.Second); got != 5*time.Second {
		t.Fatalf("expected fallback for bad input, got %s", got)
	}
}
