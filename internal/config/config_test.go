package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "WEB_PORT", "LOG_LEVEL", "FETCH_TIMEOUT", "SEARCH_DEBOUNCE", "RATE_LIMIT_RPS", "TOKEN_FILE", "TRUST_PROXY"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "50051" {
		t.Fatalf("expected default grpc port, got %s", cfg.Port)
	}
	if cfg.WebPort != "8080" {
		t.Fatalf("expected default web port, got %s", cfg.WebPort)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected info level, got %s", cfg.LogLevel)
	}
	if cfg.FetchTimeout != 10*time.Second {
		t.Fatalf("expected 10s fetch timeout, got %s", cfg.FetchTimeout)
	}
	if cfg.SearchDebounce != 0 {
		t.Fatalf("expected debounce disabled by default, got %s", cfg.SearchDebounce)
	}
	if cfg.RateLimitRPS != 5 {
		t.Fatalf("expected 5 rps, got %v", cfg.RateLimitRPS)
	}
	if cfg.TokenFile == "" {
		t.Fatal("expected a default token file")
	}
	if cfg.TrustProxy {
		t.Fatal("expected forwarded headers untrusted by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WEB_PORT", "9090")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("SEARCH_DEBOUNCE", "250ms")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("IDENTITY_GRPC_ADDR", "localhost:50051")
	t.Setenv("TRUST_PROXY", "true")
	cfg := Load()
	if !cfg.TrustProxy {
		t.Fatal("expected trust proxy override")
	}
	if cfg.WebPort != "9090" {
		t.Fatalf("expected web port override, got %s", cfg.WebPort)
	}
	if cfg.JWTSecret != "s3cret" {
		t.Fatalf("expected secret override, got %s", cfg.JWTSecret)
	}
	if cfg.FetchTimeout != 3*time.Second {
		t.Fatalf("expected fetch timeout override, got %s", cfg.FetchTimeout)
	}
	if cfg.SearchDebounce != 250*time.Millisecond {
		t.Fatalf("expected debounce override, got %s", cfg.SearchDebounce)
	}
	if cfg.RateLimitRPS != 0.5 || cfg.RateLimitBurst != 3 {
		t.Fatalf("expected rate limit override, got %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.IdentityGRPCAddr != "localhost:50051" {
		t.Fatalf("expected grpc addr override, got %s", cfg.IdentityGRPCAddr)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "soon")
	t.Setenv("RATE_LIMIT_BURST", "many")
	cfg := Load()
	if cfg.FetchTimeout != 10*time.Second {
		t.Fatalf("expected fallback timeout, got %s", cfg.FetchTimeout)
	}
	if cfg.RateLimitBurst != 10 {
		t.Fatalf("expected fallback burst, got %d", cfg.RateLimitBurst)
	}
}
