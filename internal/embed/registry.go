package embed

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Provider maps a page hostname to the provider's oEmbed discovery endpoint.
type Provider struct {
	Host     string `toml:"host" json:"host"`
	Endpoint string `toml:"endpoint" json:"endpoint"`
}

var defaultProviders = []Provider{
	{Host: "vimeo.com", Endpoint: "http://vimeo.com/api/oembed.json"},
}

// DefaultProviders returns the built-in provider table.
func DefaultProviders() []Provider {
	return append([]Provider(nil), defaultProviders...)
}

// Registry is a read-only lookup from hostname to discovery endpoint. It is
// built once at startup and safe for concurrent use.
type Registry struct {
	providers map[string]Provider
	endpoints map[string]url.URL
}

// NewRegistry validates the supplied providers and builds a registry for them.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]Provider, len(providers)),
		endpoints: make(map[string]url.URL, len(providers)),
	}

	for _, p := range providers {
		host := strings.ToLower(strings.TrimSpace(p.Host))
		if host == "" {
			return nil, errors.New("provider host is required")
		}
		if _, exists := r.providers[host]; exists {
			return nil, fmt.Errorf("duplicate provider host %q", host)
		}

		endpoint, err := url.Parse(strings.TrimSpace(p.Endpoint))
		if err != nil {
			return nil, fmt.Errorf("parse endpoint for %s: %w", host, err)
		}
		if (endpoint.Scheme != "http" && endpoint.Scheme != "https") || endpoint.Host == "" {
			return nil, fmt.Errorf("endpoint for %s must be an absolute http(s) URL", host)
		}

		r.providers[host] = Provider{Host: host, Endpoint: endpoint.String()}
		r.endpoints[host] = *endpoint
	}

	return r, nil
}

// DefaultRegistry returns a registry holding the built-in provider table.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultProviders...)
	if err != nil {
		panic(err)
	}
	return r
}

// Classify extracts the hostname of rawURL and looks up its discovery
// endpoint. An empty host means no usable URL was given; a host with a nil
// endpoint means the provider is not supported.
func (r *Registry) Classify(rawURL string) (string, *url.URL) {
	host := Hostname(rawURL)
	if host == "" || r == nil {
		return host, nil
	}

	endpoint, ok := r.endpoints[host]
	if !ok {
		return host, nil
	}

	copied := endpoint
	return host, &copied
}

// Providers lists the registered providers ordered by host.
func (r *Registry) Providers() []Provider {
	if r == nil {
		return nil
	}
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}

// Hostname returns the lowercased hostname of rawURL, or "" when the URL is
// empty or has no host component.
func Hostname(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
