package domain

import (
	"fmt"
	"net/url"
)

// Identity is the browser fingerprint presented to the upstream: a user agent
// plus its default header set. Identities are immutable; the catalog is seeded
// at startup and only ever selected from.
type Identity struct {
	UserAgent string            `yaml:"user_agent"`
	Headers   map[string]string `yaml:"headers"`
}

// ProxyEndpoint is a single outbound proxy. Credentials are optional.
type ProxyEndpoint struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// URL renders the endpoint as an http proxy URL usable by the transport.
func (p ProxyEndpoint) URL() string {
	if p.Username != "" {
		return fmt.Sprintf("http://%s:%s@%s:%d",
			url.QueryEscape(p.Username), url.QueryEscape(p.Password), p.Host, p.Port)
	}
	return fmt.Sprintf("http://%s:%d", p.Host, p.Port)
}

// Addr returns host:port, used as the proxy's stable key in health tracking.
func (p ProxyEndpoint) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}
