package config

import (
	"time"

	"github.com/vthibault/annonce/internal/core/domain"
	"github.com/vthibault/annonce/internal/guard/policy"
	redisclient "github.com/vthibault/annonce/internal/infra/redis"
	"github.com/vthibault/annonce/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Logging    LoggingConfig      `yaml:"logging"`
	Upstream   UpstreamConfig     `yaml:"upstream"`
	Protection policy.Policy      `yaml:"protection"`
	Identities []domain.Identity  `yaml:"identities"`
	Proxies    ProxyConfig        `yaml:"proxy"`
	Challenge  ChallengeConfig    `yaml:"challenge"`
	Redis      redisclient.Config `yaml:"redis"`
	Database   postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// UpstreamConfig holds upstream API settings.
type UpstreamConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ProxyConfig holds the proxy catalog and its health policy. Endpoints listed
// in the file are overridden by the PROXY_* environment lists when present.
type ProxyConfig struct {
	Endpoints      []domain.ProxyEndpoint `yaml:"endpoints"`
	CooldownCycles int                    `yaml:"cooldown_cycles"`
}

// ChallengeConfig tunes the blocked-response detection.
type ChallengeConfig struct {
	Markers []string `yaml:"markers"`
}
