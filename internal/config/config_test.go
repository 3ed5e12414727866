package config

import (
	"testing"
	"time"
)

func TestLoadGateDefaults(t *testing.T) {
	t.Setenv("GATE_MIN_INTERVAL_MS", "")
	t.Setenv("GATE_SAME_CODE_COOLDOWN_MS", "")

	cfg := Load()
	if cfg.GateMinInterval != 650*time.Millisecond {
		t.Fatalf("expected default min interval 650ms, got %s", cfg.GateMinInterval)
	}
	if cfg.GateSameCodeCooldown != 1800*time.Millisecond {
		t.Fatalf("expected default cooldown 1800ms, got %s", cfg.GateSameCodeCooldown)
	}
}

func TestLoadDictionaryDefaults(t *testing.T) {
	t.Setenv("DICT_SOURCE", "")
	t.Setenv("DICT_JAN_CATEGORY", "")
	t.Setenv("DICT_GTIN_CATEGORY", "")
	t.Setenv("DICT_FETCH_TIMEOUT_MS", "")
	t.Setenv("RESILIENCE_RETRY_MAX_ATTEMPTS", "")

	cfg := Load()
	if cfg.DictSource != "fs" || cfg.DictJANCategory != "jan" || cfg.DictGTINCategory != "gtin" {
		t.Fatalf("unexpected dictionary defaults %+v", cfg)
	}
	if cfg.DictFetchTimeout != 0 {
		t.Fatalf("expected no fetch timeout by default, got %s", cfg.DictFetchTimeout)
	}
	if cfg.ResilienceRetryMaxAttempts != 1 {
		t.Fatalf("expected single attempt by default, got %d", cfg.ResilienceRetryMaxAttempts)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("GATE_MIN_INTERVAL_MS", "300")
	t.Setenv("GATE_SAME_CODE_COOLDOWN_MS", "2500")
	t.Setenv("DICT_SOURCE", "http")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("RESILIENCE_BREAKER_ENABLED", "false")

	cfg := Load()
	if cfg.GateMinInterval != 300*time.Millisecond || cfg.GateSameCodeCooldown != 2500*time.Millisecond {
		t.Fatalf("expected gate overrides, got %s / %s", cfg.GateMinInterval, cfg.GateSameCodeCooldown)
	}
	if cfg.DictSource != "http" {
		t.Fatalf("expected http source, got %q", cfg.DictSource)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rps 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.ResilienceBreakerEnabled {
		t.Fatalf("expected breaker disabled")
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("GATE_MIN_INTERVAL_MS", "fast")
	cfg := Load()
	if cfg.GateMinInterval != 650*time.Millisecond {
		t.Fatalf("expected fallback on malformed value, got %s", cfg.GateMinInterval)
	}
}

func TestLoadNATSPublishRetries(t *testing.T) {
	t.Setenv("NATS_PUBLISH_MAX_ATTEMPTS", "")
	if cfg := Load(); cfg.NATSPublishMaxAttempts != 3 {
		t.Fatalf("expected default publish attempts 3, got %d", cfg.NATSPublishMaxAttempts)
	}

	t.Setenv("NATS_PUBLISH_MAX_ATTEMPTS", "1")
	if cfg := Load(); cfg.NATSPublishMaxAttempts != 1 {
		t.Fatalf("expected override 1, got %d", cfg.NATSPublishMaxAttempts)
	}
}

func TestLoadNATSDefaultSession(t *testing.T) {
	t.Setenv("NATS_DEFAULT_SESSION", "")
	if cfg := Load(); cfg.NATSDefaultSession != "default" {
		t.Fatalf("expected default session name, got %q", cfg.NATSDefaultSession)
	}
	t.Setenv("NATS_DEFAULT_SESSION", "ward-3")
	if cfg := Load(); cfg.NATSDefaultSession != "ward-3" {
		t.Fatalf("expected override, got %q", cfg.NATSDefaultSession)
	}
}
