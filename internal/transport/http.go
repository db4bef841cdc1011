package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/roach88/datasync/internal/pageable"
)

const (
	// DefaultAPIVersion is sent as ZUMO-API-VERSION unless overridden.
	DefaultAPIVersion = "3.0.0"

	// DefaultMaxBodyBytes caps a single page body.
	DefaultMaxBodyBytes = 32 << 20

	apiVersionHeader = "ZUMO-API-VERSION"
	requestIDHeader  = "X-Request-ID"
)

// HTTPTransport fetches table pages over HTTP.
//
// Each Fetch is a single GET; non-2xx responses are returned together with
// a *pageable.TransportError carrying the status code.
//
// Thread-safety: HTTPTransport is safe for concurrent use once built.
type HTTPTransport struct {
	client     *http.Client
	apiVersion string
	headers    http.Header
	ids        RequestIDGenerator
	logger     *slog.Logger
	maxBody    int64
}

// Option configures an HTTPTransport.
type Option func(*config)

type config struct {
	client     *http.Client
	timeout    time.Duration
	apiVersion string
	headers    http.Header
	ids        RequestIDGenerator
	metrics    *Metrics
	logger     *slog.Logger
	maxBody    int64
}

// WithClient uses c as the base client. It is copied, never modified.
func WithClient(c *http.Client) Option {
	return func(cfg *config) { cfg.client = c }
}

// WithTimeout bounds each page request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(cfg *config) { cfg.timeout = d }
}

// WithAPIVersion overrides the ZUMO-API-VERSION header.
func WithAPIVersion(v string) Option {
	return func(cfg *config) { cfg.apiVersion = v }
}

// WithHeader adds a static header to every request.
func WithHeader(key, value string) Option {
	return func(cfg *config) { cfg.headers.Add(key, value) }
}

// WithRequestIDs sets the X-Request-ID generator.
func WithRequestIDs(g RequestIDGenerator) Option {
	return func(cfg *config) { cfg.ids = g }
}

// WithMetrics instruments the transport's round tripper.
func WithMetrics(m *Metrics) Option {
	return func(cfg *config) { cfg.metrics = m }
}

// WithLogger sets the logger for request-level Debug records.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

// WithMaxBodyBytes caps the size of a page body.
func WithMaxBodyBytes(n int64) Option {
	return func(cfg *config) { cfg.maxBody = n }
}

// New builds an HTTPTransport.
func New(opts ...Option) *HTTPTransport {
	cfg := config{
		client:     http.DefaultClient,
		apiVersion: DefaultAPIVersion,
		headers:    make(http.Header),
		ids:        UUIDv7Generator{},
		logger:     slog.New(slog.DiscardHandler),
		maxBody:    DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	client := *cfg.client
	if cfg.timeout > 0 {
		client.Timeout = cfg.timeout
	}
	if cfg.metrics != nil {
		rt := client.Transport
		if rt == nil {
			rt = http.DefaultTransport
		}
		client.Transport = cfg.metrics.instrument(rt)
	}

	return &HTTPTransport{
		client:     &client,
		apiVersion: cfg.apiVersion,
		headers:    cfg.headers,
		ids:        cfg.ids,
		logger:     cfg.logger,
		maxBody:    cfg.maxBody,
	}
}

// Fetch implements pageable.Transport.
func (t *HTTPTransport) Fetch(ctx context.Context, url string) (*pageable.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &pageable.TransportError{URL: url, Message: "build request", Cause: err}
	}

	for k, vs := range t.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if t.apiVersion != "" {
		req.Header.Set(apiVersionHeader, t.apiVersion)
	}
	id := t.ids.Generate()
	req.Header.Set(requestIDHeader, id)

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &pageable.TransportError{URL: url, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody+1))
	if err != nil {
		return nil, &pageable.TransportError{URL: url, StatusCode: resp.StatusCode, Message: "read body", Cause: err}
	}
	if int64(len(body)) > t.maxBody {
		return nil, &pageable.TransportError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("body exceeds %d bytes", t.maxBody),
		}
	}

	t.logger.Debug("page request",
		"url", url,
		"request_id", id,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start),
	)

	out := &pageable.Response{
		URL:        url,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Content:    body,
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, &pageable.TransportError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Message:    statusMessage(resp.StatusCode, body),
		}
	}
	return out, nil
}

func statusMessage(code int, body []byte) string {
	msg := http.StatusText(code)
	if detail := strings.TrimSpace(string(body)); detail != "" {
		if len(detail) > 200 {
			detail = detail[:200] + "..."
		}
		msg += ": " + detail
	}
	return msg
}
