package config

import (
	"os"
	"testing"

	"github.com/vthibault/annonce/internal/guard/policy"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "config_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_REDIS_URL", "redis://localhost:6379/0")

	path := writeConfig(t, `
redis:
  url: ${TEST_REDIS_URL}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Errorf("Expected redis URL from env, got %s", cfg.Redis.URL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Upstream.BaseURL == "" || cfg.Upstream.Timeout == 0 {
		t.Errorf("upstream defaults missing: %+v", cfg.Upstream)
	}
	if cfg.Protection.MaxAttempts < 1 {
		t.Errorf("protection defaults missing: %+v", cfg.Protection)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("explicit level lost: %s", cfg.Logging.Level)
	}
}

func TestLoad_PartialProtectionMergesDefaults(t *testing.T) {
	path := writeConfig(t, `
protection:
  min_delay_seconds: 0.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Protection.MinDelaySeconds != 0.5 {
		t.Errorf("explicit min lost: %+v", cfg.Protection)
	}
	if cfg.Protection.MaxDelaySeconds != 3 || cfg.Protection.MaxAttempts != 3 || cfg.Protection.BackoffBaseSeconds != 2 {
		t.Errorf("unset fields did not merge defaults: %+v", cfg.Protection)
	}
	if _, err := policy.NewStore(cfg.Protection); err != nil {
		t.Errorf("merged policy rejected by validation: %v", err)
	}
}

func TestLoad_ProtectionMinAboveDefaultMax(t *testing.T) {
	path := writeConfig(t, `
protection:
  min_delay_seconds: 5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Protection.MaxDelaySeconds < cfg.Protection.MinDelaySeconds {
		t.Errorf("defaulted max below explicit min: %+v", cfg.Protection)
	}
}

func TestProxiesFromEnv(t *testing.T) {
	t.Setenv("PROXY_HOSTS", "1.2.3.4, 5.6.7.8,9.9.9.9")
	t.Setenv("PROXY_PORTS", "3128,")
	t.Setenv("PROXY_USERS", "alice")
	t.Setenv("PROXY_PASSWORDS", "secret")

	got := ProxiesFromEnv()
	if len(got) != 3 {
		t.Fatalf("endpoints = %d, want 3", len(got))
	}

	if got[0].Host != "1.2.3.4" || got[0].Port != 3128 || got[0].Username != "alice" || got[0].Password != "secret" {
		t.Errorf("endpoint 0 = %+v", got[0])
	}
	if got[1].Host != "5.6.7.8" || got[1].Port != 8080 {
		t.Errorf("endpoint 1 = %+v (missing port should default to 8080)", got[1])
	}
	if got[2].Username != "" || got[2].Password != "" {
		t.Errorf("endpoint 2 = %+v (missing credentials should stay empty)", got[2])
	}
}

func TestProxiesFromEnvAbsent(t *testing.T) {
	t.Setenv("PROXY_HOSTS", "")
	if got := ProxiesFromEnv(); got != nil {
		t.Errorf("expected nil without PROXY_HOSTS, got %v", got)
	}
}

func TestLoad_EnvProxiesOverrideFile(t *testing.T) {
	t.Setenv("PROXY_HOSTS", "10.0.0.1")
	t.Setenv("PROXY_PORTS", "")
	t.Setenv("PROXY_USERS", "")
	t.Setenv("PROXY_PASSWORDS", "")

	path := writeConfig(t, `
proxy:
  endpoints:
    - host: 192.168.1.1
      port: 8888
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Proxies.Endpoints) != 1 || cfg.Proxies.Endpoints[0].Host != "10.0.0.1" {
		t.Errorf("env proxies should override file list, got %+v", cfg.Proxies.Endpoints)
	}
}
