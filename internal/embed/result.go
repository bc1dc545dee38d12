package embed

import "fmt"

const (
	// DefaultMaxWidth is the embed width used when the authoring form omits one.
	DefaultMaxWidth = 800
	// DefaultMaxHeight is the embed height used when the authoring form omits one.
	DefaultMaxHeight = 450
)

// VideoReference is the caller-owned input to a resolution.
type VideoReference struct {
	SourceURL string `json:"sourceUrl"`
	MaxWidth  int    `json:"maxWidth"`
	MaxHeight int    `json:"maxHeight"`
}

// Status tags the variant held by a Result.
type Status int

const (
	StatusEmbedded Status = iota + 1
	StatusUnsupported
	StatusProviderError
)

func (s Status) String() string {
	switch s {
	case StatusEmbedded:
		return "embedded"
	case StatusUnsupported:
		return "unsupported"
	case StatusProviderError:
		return "provider_error"
	default:
		return "unknown"
	}
}

// Failure classifies why a provider call did not yield markup.
type Failure int

const (
	FailureNone Failure = iota
	FailureUnreachable
	FailureTimeout
	FailureBadStatus
	FailureBadResponse
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return ""
	case FailureUnreachable:
		return "unreachable"
	case FailureTimeout:
		return "timeout"
	case FailureBadStatus:
		return "bad_status"
	case FailureBadResponse:
		return "bad_response"
	default:
		return "unknown"
	}
}

// Result is the outcome of a single resolution. Markup is only set when
// Status is StatusEmbedded; Failure and Detail only when it is
// StatusProviderError. An empty ProviderHost means no host could be derived.
type Result struct {
	Status       Status
	ProviderHost string
	Markup       string
	Failure      Failure
	Detail       string
}

// Embedded builds a successful result carrying the provider's markup verbatim.
func Embedded(host, markup string) Result {
	return Result{Status: StatusEmbedded, ProviderHost: host, Markup: markup}
}

// Unsupported builds a result for a missing URL (empty host) or an unknown provider.
func Unsupported(host string) Result {
	return Result{Status: StatusUnsupported, ProviderHost: host}
}

// ProviderError builds a result for a failed provider call.
func ProviderError(host string, failure Failure, detail string) Result {
	return Result{Status: StatusProviderError, ProviderHost: host, Failure: failure, Detail: detail}
}

// Err maps the result to an error wrapping one of the package sentinels. It
// returns nil for embedded results.
func (r Result) Err() error {
	switch r.Status {
	case StatusEmbedded:
		return nil
	case StatusUnsupported:
		if r.ProviderHost == "" {
			return ErrNoURL
		}
		return fmt.Errorf("%w: %s", ErrUnsupportedProvider, r.ProviderHost)
	case StatusProviderError:
		var sentinel error
		switch r.Failure {
		case FailureTimeout:
			sentinel = ErrProviderTimeout
		case FailureUnreachable:
			sentinel = ErrProviderUnreachable
		default:
			sentinel = ErrProviderBadResponse
		}
		return fmt.Errorf("%s: %w: %s", r.ProviderHost, sentinel, r.Detail)
	default:
		return fmt.Errorf("unknown embed status %d", int(r.Status))
	}
}

// Message returns the text shown to end users when the result carries no markup.
func (r Result) Message() string {
	switch r.Status {
	case StatusEmbedded:
		return ""
	case StatusUnsupported:
		if r.ProviderHost == "" {
			return "No video URL configured"
		}
		return fmt.Sprintf("Unsupported video provider (%s)", r.ProviderHost)
	case StatusProviderError:
		return fmt.Sprintf("Error getting video from provider (%s)", r.Detail)
	default:
		return "Video unavailable"
	}
}
