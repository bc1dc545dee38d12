package embed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/tidwall/gjson"

	"github.com/trowebvideo/backend/internal/logging"
)

// DefaultTimeout bounds the whole discovery request.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 1 << 20

// Doer performs HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Resolver turns video references into embed markup using a provider registry.
type Resolver struct {
	Registry *Registry
	Client   Doer
	Timeout  time.Duration
}

// NewResolver constructs a Resolver. A nil registry falls back to the
// built-in table and a nil client to a pooled client without shared state.
func NewResolver(registry *Registry, client Doer, timeout time.Duration) *Resolver {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		Registry: registry,
		Client:   client,
		Timeout:  timeout,
	}
}

// Resolve classifies ref's URL and, for supported providers, asks the
// provider for embed markup. It never returns an error: every failure is
// reported through the Result.
func (r *Resolver) Resolve(ctx context.Context, ref VideoReference) (result Result) {
	ctx, span := logging.StartSpan(ctx, "embed.resolve")
	defer func() {
		span.End("status", result.Status.String(), "failure", result.Failure.String())
	}()
	logger := logging.FromContext(ctx)

	sourceURL := strings.TrimSpace(ref.SourceURL)
	host, endpoint := r.registry().Classify(sourceURL)
	if host == "" {
		logger.Info("embed skipped: no usable url")
		return Unsupported("")
	}
	if endpoint == nil {
		logger.Info("embed skipped: unsupported provider", "host", host)
		return Unsupported(host)
	}

	query := endpoint.Query()
	query.Set("url", sourceURL)
	query.Set("format", "json")
	query.Set("maxwidth", strconv.Itoa(ref.MaxWidth))
	query.Set("maxheight", strconv.Itoa(ref.MaxHeight))
	query.Set("api", "true")
	endpoint.RawQuery = query.Encode()

	timeout := r.timeout()
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	markup, failure, detail := r.fetch(reqCtx, endpoint.String(), timeout)
	if failure != FailureNone {
		logger.Warn("embed provider call failed", "host", host, "failure", failure.String(), "detail", detail)
		return ProviderError(host, failure, detail)
	}

	logger.Info("embed resolved", "host", host, "markupBytes", len(markup))
	return Embedded(host, markup)
}

func (r *Resolver) fetch(ctx context.Context, endpoint string, timeout time.Duration) (string, Failure, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", FailureUnreachable, fmt.Sprintf("build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client().Do(req)
	if err != nil {
		return "", transportFailure(err), transportDetail(err, timeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return "", FailureBadStatus, fmt.Sprintf("provider returned status %s", statusText(resp))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", transportFailure(err), transportDetail(err, timeout)
	}

	if !gjson.ValidBytes(body) {
		return "", FailureBadResponse, "provider response is not valid JSON"
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return "", FailureBadResponse, "provider response is not a JSON object"
	}
	html := parsed.Get("html")
	if html.Type != gjson.String {
		return "", FailureBadResponse, "provider response has no html field"
	}
	// An empty snippet is a bad response, not an embed.
	if html.String() == "" {
		return "", FailureBadResponse, "provider response has an empty html field"
	}

	return html.String(), FailureNone, ""
}

func (r *Resolver) registry() *Registry {
	if r == nil || r.Registry == nil {
		return DefaultRegistry()
	}
	return r.Registry
}

func (r *Resolver) client() Doer {
	if r == nil || r.Client == nil {
		return cleanhttp.DefaultPooledClient()
	}
	return r.Client
}

func (r *Resolver) timeout() time.Duration {
	if r == nil || r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

func transportFailure(err error) Failure {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureUnreachable
}

func transportDetail(err error, timeout time.Duration) string {
	if transportFailure(err) == FailureTimeout {
		return fmt.Sprintf("request timed out after %s", timeout)
	}
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	return err.Error()
}

func statusText(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return strconv.Itoa(resp.StatusCode)
}
