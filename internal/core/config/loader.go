package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vthibault/annonce/internal/core/domain"
	"github.com/vthibault/annonce/internal/guard/policy"
)

// DefaultProxyPort applies when a PROXY_PORTS slot is missing or empty.
const DefaultProxyPort = 8080

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a runnable configuration without a file.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = "https://api.leboncoin.fr"
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 15 * time.Second
	}

	zero := policy.Policy{}
	if cfg.Protection == zero {
		cfg.Protection = policy.Default()
	} else {
		// Partial protection sections keep their explicit fields; unset
		// fields merge in the defaults so validation never rejects them.
		def := policy.Default()
		if cfg.Protection.MaxDelaySeconds == 0 {
			cfg.Protection.MaxDelaySeconds = def.MaxDelaySeconds
			if cfg.Protection.MaxDelaySeconds < cfg.Protection.MinDelaySeconds {
				cfg.Protection.MaxDelaySeconds = cfg.Protection.MinDelaySeconds
			}
		}
		if cfg.Protection.MaxAttempts == 0 {
			cfg.Protection.MaxAttempts = def.MaxAttempts
		}
		if cfg.Protection.BackoffBaseSeconds == 0 {
			cfg.Protection.BackoffBaseSeconds = def.BackoffBaseSeconds
		}
	}

	if env := ProxiesFromEnv(); len(env) > 0 {
		cfg.Proxies.Endpoints = env
	}
	for i := range cfg.Proxies.Endpoints {
		if cfg.Proxies.Endpoints[i].Port == 0 {
			cfg.Proxies.Endpoints[i].Port = DefaultProxyPort
		}
	}
}

// ProxiesFromEnv composes proxy endpoints from the parallel comma-separated
// lists PROXY_HOSTS, PROXY_PORTS, PROXY_USERS and PROXY_PASSWORDS: index i
// across the four lists is one endpoint. A missing port defaults to 8080; a
// missing user/password yields an unauthenticated entry.
func ProxiesFromEnv() []domain.ProxyEndpoint {
	hosts := splitList(os.Getenv("PROXY_HOSTS"))
	if len(hosts) == 0 {
		return nil
	}
	ports := splitList(os.Getenv("PROXY_PORTS"))
	users := splitList(os.Getenv("PROXY_USERS"))
	passwords := splitList(os.Getenv("PROXY_PASSWORDS"))

	out := make([]domain.ProxyEndpoint, 0, len(hosts))
	for i, host := range hosts {
		ep := domain.ProxyEndpoint{Host: host, Port: DefaultProxyPort}
		if i < len(ports) && ports[i] != "" {
			if p, err := strconv.Atoi(ports[i]); err == nil {
				ep.Port = p
			}
		}
		if i < len(users) {
			ep.Username = users[i]
		}
		if i < len(passwords) {
			ep.Password = passwords[i]
		}
		out = append(out, ep)
	}
	return out
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
