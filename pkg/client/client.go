package client

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
)

// DefaultBaseURL is the host's default loopback address.
const DefaultBaseURL = "http://127.0.0.1:1420"

// Client talks to a running glosaurus host over its invocation API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: 30 * time.Second,
	}
}

func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the host is running and reachable
func (c *Client) IsReachable(ctx context.Context) bool {
	_, err := c.Status(ctx)
	if err != nil {
		c.logger.Debug("Host unreachable", "error", err)
		return false
	}
	return true
}

// Greet calls the greet invocation.
func (c *Client) Greet(ctx context.Context, name string) (string, error) {
	var out string
	if err := c.do(ctx, http.MethodPost, "/invoke/greet", greetRequest{Name: name}, &out); err != nil {
		return "", err
	}
	return out, nil
}

// Proxy asks the host to forward req and returns the JSON value it got back.
func (c *Client) Proxy(ctx context.Context, req ProxyRequest) (json.RawMessage, error) {
	c.logger.Debug("Proxying request", "method", req.Method, "url", req.URL)
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/invoke/proxy_request", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Status returns the supervised backend's status.
func (c *Client) Status(ctx context.Context) (BackendStatus, error) {
	var st BackendStatus
	err := c.do(ctx, http.MethodGet, "/backend/status", nil, &st)
	return st, err
}

// Close requests the window to close, which terminates the backend.
func (c *Client) Close(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/window/close", nil, nil)
}

// do performs HTTP request with common error handling
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.handleErrorResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// handleErrorResponse handles HTTP error responses
func (c *Client) handleErrorResponse(resp *http.Response) error {
	var errorResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
		c.logger.Debug("Failed to decode error response", "status", resp.StatusCode)
		return &APIError{StatusCode: resp.StatusCode}
	}
	c.logger.Debug("API request failed", "error", errorResp.Error, "status", resp.StatusCode)
	return &APIError{StatusCode: resp.StatusCode, Message: errorResp.Error}
}
