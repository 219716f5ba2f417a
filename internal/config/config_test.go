package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.Timeout != 15*time.Second {
		t.Fatalf("Timeout = %v", cfg.Timeout)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TUBEPROXY_LISTEN", ":9090")
	t.Setenv("TUBEPROXY_API_KEY", "env-key")
	t.Setenv("TUBEPROXY_LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.ListenAddr != ":9090" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.APIKey != "env-key" {
		t.Fatalf("APIKey = %q", cfg.APIKey)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadAPIKeyFallback(t *testing.T) {
	t.Setenv("TUBEPROXY_API_KEY", "")
	t.Setenv("YOUTUBE_API_KEY", "fallback-key")

	cfg := Load()
	if cfg.APIKey != "fallback-key" {
		t.Fatalf("APIKey = %q, want the YOUTUBE_API_KEY fallback", cfg.APIKey)
	}
}
