package embed

import "testing"

func TestRegistryClassify(t *testing.T) {
	registry := DefaultRegistry()

	tests := []struct {
		name         string
		url          string
		wantHost     string
		wantEndpoint string
	}{
		{name: "empty", url: "", wantHost: ""},
		{name: "whitespace", url: "   ", wantHost: ""},
		{name: "vimeo", url: "https://vimeo.com/46100581", wantHost: "vimeo.com", wantEndpoint: "http://vimeo.com/api/oembed.json"},
		{name: "vimeo http uppercase", url: "HTTP://Vimeo.COM/46100581?x=1", wantHost: "vimeo.com", wantEndpoint: "http://vimeo.com/api/oembed.json"},
		{name: "vimeo with port", url: "https://vimeo.com:443/46100581", wantHost: "vimeo.com", wantEndpoint: "http://vimeo.com/api/oembed.json"},
		{name: "subdomain is not matched", url: "https://www.vimeo.com/46100581", wantHost: "www.vimeo.com"},
		{name: "other provider", url: "https://www.youtube.com/watch?v=abc", wantHost: "www.youtube.com"},
		{name: "no scheme", url: "vimeo.com/46100581", wantHost: ""},
		{name: "malformed", url: "http://[::1", wantHost: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, endpoint := registry.Classify(tt.url)
			if host != tt.wantHost {
				t.Fatalf("host = %q want %q", host, tt.wantHost)
			}
			if tt.wantEndpoint == "" {
				if endpoint != nil {
					t.Fatalf("expected no endpoint got %s", endpoint)
				}
				return
			}
			if endpoint == nil {
				t.Fatal("expected endpoint")
			}
			if endpoint.String() != tt.wantEndpoint {
				t.Fatalf("endpoint = %s want %s", endpoint, tt.wantEndpoint)
			}
		})
	}
}

func TestRegistryClassifyReturnsCopy(t *testing.T) {
	registry := DefaultRegistry()

	_, endpoint := registry.Classify("https://vimeo.com/1")
	endpoint.RawQuery = "mutated=1"
	endpoint.Path = "/elsewhere"

	_, again := registry.Classify("https://vimeo.com/1")
	if again.String() != "http://vimeo.com/api/oembed.json" {
		t.Fatalf("registry endpoint mutated: %s", again)
	}
}

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name      string
		providers []Provider
	}{
		{name: "empty host", providers: []Provider{{Host: " ", Endpoint: "https://example.com/oembed"}}},
		{name: "relative endpoint", providers: []Provider{{Host: "example.com", Endpoint: "/oembed"}}},
		{name: "bad scheme", providers: []Provider{{Host: "example.com", Endpoint: "ftp://example.com/oembed"}}},
		{name: "duplicate", providers: []Provider{
			{Host: "example.com", Endpoint: "https://example.com/a"},
			{Host: "Example.com", Endpoint: "https://example.com/b"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.providers...); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestRegistryProvidersSorted(t *testing.T) {
	registry, err := NewRegistry(
		Provider{Host: "vimeo.com", Endpoint: "http://vimeo.com/api/oembed.json"},
		Provider{Host: "dailymotion.com", Endpoint: "https://www.dailymotion.com/services/oembed"},
	)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	providers := registry.Providers()
	if len(providers) != 2 {
		t.Fatalf("expected 2 providers got %d", len(providers))
	}
	if providers[0].Host != "dailymotion.com" || providers[1].Host != "vimeo.com" {
		t.Fatalf("unexpected order: %+v", providers)
	}

	host, endpoint := registry.Classify("https://dailymotion.com/video/x1")
	if host != "dailymotion.com" || endpoint == nil {
		t.Fatalf("expected extended table to match, got %q %v", host, endpoint)
	}
}

func TestDefaultProvidersIsolated(t *testing.T) {
	providers := DefaultProviders()
	providers[0].Host = "changed.example"

	if DefaultProviders()[0].Host != "vimeo.com" {
		t.Fatal("default provider table was mutated through returned slice")
	}
}
