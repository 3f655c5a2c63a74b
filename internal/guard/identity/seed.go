package identity

import "github.com/vthibault/annonce/internal/core/domain"

// DefaultCatalog returns the built-in identity catalog, used when the config
// file does not provide one. Header sets mirror what the matching browsers
// actually send to the upstream.
func DefaultCatalog() []domain.Identity {
	base := map[string]string{
		"Accept":          "application/json",
		"Accept-Language": "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7",
		"Origin":          "https://www.leboncoin.fr",
		"Referer":         "https://www.leboncoin.fr/",
	}

	agents := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	}

	catalog := make([]domain.Identity, len(agents))
	for i, ua := range agents {
		headers := make(map[string]string, len(base))
		for k, v := range base {
			headers[k] = v
		}
		catalog[i] = domain.Identity{UserAgent: ua, Headers: headers}
	}
	return catalog
}
