package embed

import "errors"

var (
	// ErrNoURL indicates the video reference carries no source URL.
	ErrNoURL = errors.New("no video url provided")
	// ErrUnsupportedProvider indicates the URL's host is not in the registry.
	ErrUnsupportedProvider = errors.New("unsupported video provider")
	// ErrProviderUnreachable indicates the discovery request could not be completed.
	ErrProviderUnreachable = errors.New("video provider unreachable")
	// ErrProviderTimeout indicates the discovery request exceeded the resolver timeout.
	ErrProviderTimeout = errors.New("video provider timed out")
	// ErrProviderBadResponse indicates the provider answered with an unusable response.
	ErrProviderBadResponse = errors.New("video provider returned a bad response")
)
