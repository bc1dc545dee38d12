package embed

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type providersFile struct {
	Providers []Provider `toml:"provider"`
}

// LoadProvidersFile reads additional providers from a TOML file of the form
//
//	[[provider]]
//	host = "example.com"
//	endpoint = "https://example.com/oembed"
//
// An empty path yields no providers.
func LoadProvidersFile(path string) ([]Provider, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}

	var file providersFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse providers file %s: %w", path, err)
	}

	return file.Providers, nil
}

// BuildRegistry combines the built-in providers with those listed in path.
func BuildRegistry(path string) (*Registry, error) {
	extra, err := LoadProvidersFile(path)
	if err != nil {
		return nil, err
	}
	return NewRegistry(append(DefaultProviders(), extra...)...)
}
