// Package worker implements a Provider that posts raw messages to a locally
// running email worker, the way the worker runtime's inbound email handler
// expects them.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shineum/email-worker-devsend/internal/provider"
)

// DefaultURL is the local dev endpoint of the worker's email handler.
const DefaultURL = "http://localhost:8787/cdn-cgi/handler/email"

// DefaultContentType is the Content-Type header sent with the raw message.
// The handler ignores it and reads the body as RFC 5322 text.
const DefaultContentType = "application/json"

// Config holds the configuration for creating a Provider.
type Config struct {
	URL         string
	ContentType string

	// Timeout bounds the whole request. Zero means no timeout.
	Timeout time.Duration
}

// Doer is the subset of *http.Client used by the provider.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Provider delivers messages with a single HTTP POST.
type Provider struct {
	endpoint    *url.URL
	contentType string
	client      Doer
}

// New creates a Provider for cfg using its own http.Client.
func New(cfg Config) (*Provider, error) {
	return NewWithClient(cfg, &http.Client{Timeout: cfg.Timeout})
}

// NewWithClient creates a Provider that sends through client.
func NewWithClient(cfg Config, client Doer) (*Provider, error) {
	raw := cfg.URL
	if raw == "" {
		raw = DefaultURL
	}

	endpoint, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse worker URL: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("worker URL must be http or https, got %q", raw)
	}

	contentType := cfg.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}

	return &Provider{
		endpoint:    endpoint,
		contentType: contentType,
		client:      client,
	}, nil
}

// Deliver posts env.Raw verbatim with from and to added as query parameters.
// Any HTTP status is returned as a Response; only transport failures are
// errors.
func (p *Provider) Deliver(ctx context.Context, env *provider.Envelope) (*provider.Response, error) {
	target := p.targetURL(env.From, env.To)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(env.Raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", p.contentType)

	slog.Debug("posting message to worker",
		"url", target,
		"bytes", len(env.Raw),
	)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("worker request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read worker response: %w", err)
	}

	return &provider.Response{
		Provider:   p.Name(),
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "worker"
}

// targetURL returns the endpoint with from and to merged into its query.
func (p *Provider) targetURL(from, to string) string {
	u := *p.endpoint
	q := u.Query()
	q.Set("from", from)
	q.Set("to", to)
	u.RawQuery = q.Encode()
	return u.String()
}
