package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Addr != "127.0.0.1:8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.APIBaseURL != "http://localhost:5000" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.APITimeout != 15*time.Second {
		t.Errorf("APITimeout = %v", cfg.APITimeout)
	}
	if !cfg.Dev() {
		t.Error("default env should be development")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://todos.example.com")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("APP_ENV", "production")
	cfg := Load()
	if cfg.APIBaseURL != "https://todos.example.com" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.APITimeout != 3*time.Second {
		t.Errorf("APITimeout = %v", cfg.APITimeout)
	}
	if cfg.Dev() {
		t.Error("production env reported as dev")
	}
}

func TestBadDurationFallsBack(t *testing.T) {
	t.Setenv("API_TIMEOUT", "soon")
	if cfg := Load(); cfg.APITimeout != 15*time.Second {
		t.Errorf("APITimeout = %v, want default", cfg.APITimeout)
	}
}
