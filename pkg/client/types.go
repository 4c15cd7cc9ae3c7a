package client

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProxyRequest asks the host to perform an HTTP call.
type ProxyRequest struct {
	Method string          `json:"method"`
	URL    string          `json:"url"`
	Body   json.RawMessage `json:"body,omitempty"`
}

type greetRequest struct {
	Name string `json:"name"`
}

// BackendStatus is the supervised backend's state as reported by the host.
type BackendStatus struct {
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	StoppedAt time.Time `json:"stopped_at,omitempty"`
	ExitError string    `json:"exit_error,omitempty"`
	Alive     bool      `json:"alive"`
	RSSBytes  uint64    `json:"rss_bytes,omitempty"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// APIError is a non-success response from the host.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return "API error: " + e.Message
}
