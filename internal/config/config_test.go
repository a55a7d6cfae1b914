package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load with defaults: %v", err)
	}

	if cfg.AppEnv != EnvDev {
		t.Fatalf("expected dev env, got %q", cfg.AppEnv)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected http addr %q", cfg.HTTPAddr)
	}
	if cfg.TodayCacheTTL != 10*time.Minute {
		t.Fatalf("unexpected today cache ttl %v", cfg.TodayCacheTTL)
	}
	if cfg.SettledCacheTTL != 6*time.Hour {
		t.Fatalf("unexpected settled cache ttl %v", cfg.SettledCacheTTL)
	}
	if cfg.FallbackMode != FallbackPrimaryEmpty {
		t.Fatalf("unexpected fallback mode %q", cfg.FallbackMode)
	}
	if cfg.EnrichConcurrency != 6 {
		t.Fatalf("unexpected enrich concurrency %d", cfg.EnrichConcurrency)
	}
	if len(cfg.ESPNSoccerSegments) != 7 {
		t.Fatalf("unexpected soccer segments %v", cfg.ESPNSoccerSegments)
	}
	if cfg.SportsDBKey != "3" {
		t.Fatalf("unexpected sportsdb key %q", cfg.SportsDBKey)
	}
}

func TestLoadInvalidEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid APP_ENV")
	}
}

func TestLoadInvalidFallbackMode(t *testing.T) {
	t.Setenv("FALLBACK_MODE", "sometimes")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid FALLBACK_MODE")
	}
	if !strings.Contains(err.Error(), "FALLBACK_MODE") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadFallbackAlways(t *testing.T) {
	t.Setenv("FALLBACK_MODE", "always")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.FallbackMode != FallbackAlways {
		t.Fatalf("unexpected fallback mode %q", cfg.FallbackMode)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("TODAY_CACHE_TTL", "ten minutes")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid TODAY_CACHE_TTL")
	}
}

func TestLoadNegativeRefreshInterval(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL", "-1m")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative REFRESH_INTERVAL")
	}
}

func TestLoadZeroRefreshIntervalAllowed(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL", "0s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RefreshInterval != 0 {
		t.Fatalf("expected disabled refresh, got %v", cfg.RefreshInterval)
	}
}

func TestLoadCustomSegments(t *testing.T) {
	t.Setenv("ESPN_SOCCER_SEGMENTS", "eng.1, por.1 ,")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"eng.1", "por.1"}
	if len(cfg.ESPNSoccerSegments) != len(want) {
		t.Fatalf("unexpected segments %v", cfg.ESPNSoccerSegments)
	}
	for i, seg := range want {
		if cfg.ESPNSoccerSegments[i] != seg {
			t.Fatalf("segment %d = %q, want %q", i, cfg.ESPNSoccerSegments[i], seg)
		}
	}
}

func TestLoadAdminTokenTrimmed(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "  secret  ")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AdminToken != "secret" {
		t.Fatalf("unexpected admin token %q", cfg.AdminToken)
	}
}
