package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"ENV", "PORT", "PRESENCE_BACKEND", "WS_HANDSHAKE_TIMEOUT", "WS_EVENT_BURST", "ALLOWED_ORIGINS", "FRONTEND_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "5000" {
		t.Errorf("Port: got %q, want %q", cfg.Port, "5000")
	}
	if cfg.PresenceBackend != "memory" {
		t.Errorf("PresenceBackend: got %q, want memory", cfg.PresenceBackend)
	}
	if cfg.HandshakeTimeout != 10*time.Second {
		t.Errorf("HandshakeTimeout: got %v", cfg.HandshakeTimeout)
	}
	if cfg.EventBurst != 40 {
		t.Errorf("EventBurst: got %d", cfg.EventBurst)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("AllowedOrigins: got %v", cfg.AllowedOrigins)
	}
	if cfg.IsProduction() {
		t.Error("expected development environment by default")
	}
	if cfg.AllowedHost != "" {
		t.Errorf("AllowedHost should be empty outside production, got %q", cfg.AllowedHost)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENV", "Production")
	t.Setenv("HOST", "https://api.glowspace.app:443/v1")
	t.Setenv("PRESENCE_BACKEND", "REDIS")
	t.Setenv("WS_HANDSHAKE_TIMEOUT", "3s")
	t.Setenv("WS_EVENT_RATE", "2.5")
	t.Setenv("ALLOWED_ORIGINS", "https://glowspace.app, https://www.glowspace.app ,")

	cfg := Load()

	if !cfg.IsProduction() {
		t.Error("expected production")
	}
	if cfg.AllowedHost != "api.glowspace.app" {
		t.Errorf("AllowedHost: got %q", cfg.AllowedHost)
	}
	if cfg.PresenceBackend != "redis" {
		t.Errorf("PresenceBackend: got %q", cfg.PresenceBackend)
	}
	if cfg.HandshakeTimeout != 3*time.Second {
		t.Errorf("HandshakeTimeout: got %v", cfg.HandshakeTimeout)
	}
	if cfg.EventRate != 2.5 {
		t.Errorf("EventRate: got %v", cfg.EventRate)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins: got %v", cfg.AllowedOrigins)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("WS_HANDSHAKE_TIMEOUT", "soon")
	t.Setenv("WS_EVENT_BURST", "-3")
	t.Setenv("PRESENCE_BACKEND", "etcd")

	cfg := Load()

	if cfg.HandshakeTimeout != 10*time.Second {
		t.Errorf("HandshakeTimeout: got %v", cfg.HandshakeTimeout)
	}
	if cfg.EventBurst != 40 {
		t.Errorf("EventBurst: got %d", cfg.EventBurst)
	}
	if cfg.PresenceBackend != "memory" {
		t.Errorf("PresenceBackend: got %q", cfg.PresenceBackend)
	}
}
