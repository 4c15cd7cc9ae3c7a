// Package forwarder performs HTTP calls on behalf of the front-end and hands
// back the response as a JSON value.
package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/loykin/glosaurus/internal/metrics"
)

// DefaultMaxRedirects matches net/http's own limit.
const DefaultMaxRedirects = 10

// Value is a JSON document. It holds the response body when that body is
// valid JSON, and otherwise the body text encoded as a JSON string.
type Value = json.RawMessage

// Request describes one forwarded call. A Body of nil, empty or JSON null
// means no payload.
type Request struct {
	Method string          `json:"method"`
	URL    string          `json:"url"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// Config tunes the outbound client. The zero value follows redirects and
// never times out.
type Config struct {
	Timeout      time.Duration     `mapstructure:"timeout"`
	MaxRedirects int               `mapstructure:"max_redirects"` // 0 means DefaultMaxRedirects, negative disables following
	Headers      map[string]string `mapstructure:"headers"`
	UserAgent    string            `mapstructure:"user_agent"`
}

type Forwarder struct {
	client    *http.Client
	headers   map[string]string
	userAgent string
	logger    *slog.Logger
}

type Option func(*Forwarder)

func WithLogger(l *slog.Logger) Option { return func(f *Forwarder) { f.logger = l } }

// WithTransport replaces the outbound RoundTripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Forwarder) { f.client.Transport = rt }
}

func New(cfg Config, opts ...Option) *Forwarder {
	f := &Forwarder{
		client: &http.Client{
			Timeout:       cfg.Timeout,
			CheckRedirect: redirectPolicy(cfg.MaxRedirects),
		},
		headers:   cfg.Headers,
		userAgent: cfg.UserAgent,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func redirectPolicy(max int) func(*http.Request, []*http.Request) error {
	if max == 0 {
		max = DefaultMaxRedirects
	}
	return func(_ *http.Request, via []*http.Request) error {
		if max < 0 {
			return http.ErrUseLastResponse
		}
		if len(via) >= max {
			return fmt.Errorf("stopped after %d redirects", max)
		}
		return nil
	}
}

// NormalizeMethod upper-cases m and checks it against the supported set.
func NormalizeMethod(m string) (string, error) {
	up := strings.ToUpper(strings.TrimSpace(m))
	switch up {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		return up, nil
	default:
		return "", &UnsupportedMethodError{Method: up}
	}
}

// Forward performs req and returns the response as a Value. HTTP error
// statuses are not errors; their bodies are returned like any other.
func (f *Forwarder) Forward(ctx context.Context, req Request) (Value, error) {
	start := time.Now()
	method, err := NormalizeMethod(req.Method)
	if err != nil {
		metrics.ObserveProxy("OTHER", Outcome(err), time.Since(start))
		return nil, err
	}
	v, err := f.do(ctx, method, req)
	metrics.ObserveProxy(method, Outcome(err), time.Since(start))
	if err != nil {
		f.logger.Debug("forward failed", "method", method, "url", req.URL, "error", err)
		return nil, err
	}
	f.logger.Debug("forwarded", "method", method, "url", req.URL, "bytes", len(v), "elapsed", time.Since(start))
	return v, nil
}

func (f *Forwarder) do(ctx context.Context, method string, req Request) (Value, error) {
	var payload io.Reader
	if hasBody(req.Body) {
		if !json.Valid(req.Body) {
			return nil, ErrInvalidBody
		}
		payload = bytes.NewReader(req.Body)
	}
	hr, err := http.NewRequestWithContext(ctx, method, req.URL, payload)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	for k, v := range f.headers {
		hr.Header.Set(k, v)
	}
	if f.userAgent != "" {
		hr.Header.Set("User-Agent", f.userAgent)
	}
	if payload != nil {
		hr.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(hr)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &BodyReadError{Err: err}
	}
	return toValue(b), nil
}

func hasBody(b json.RawMessage) bool {
	t := bytes.TrimSpace(b)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

// toValue keeps valid JSON as-is and wraps anything else as a JSON string.
func toValue(b []byte) Value {
	t := bytes.TrimSpace(b)
	if len(t) > 0 && json.Valid(t) {
		return Value(t)
	}
	s, _ := json.Marshal(string(b))
	return Value(s)
}
