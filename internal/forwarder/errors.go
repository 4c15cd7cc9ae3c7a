package forwarder

import "errors"

var (
	ErrUnsupportedMethod = errors.New("unsupported method")
	ErrInvalidBody       = errors.New("request body is not valid JSON")
)

// UnsupportedMethodError is returned before any network I/O when the method
// is not one of GET, POST, PUT, DELETE.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string { return "Unsupported method: " + e.Method }

func (e *UnsupportedMethodError) Is(target error) bool { return target == ErrUnsupportedMethod }

// NetworkError wraps transport failures: DNS, connect, TLS, timeout, or an
// unusable URL.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "request error: " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// BodyReadError means the response arrived but its body could not be read.
type BodyReadError struct {
	Err error
}

func (e *BodyReadError) Error() string { return "read body error: " + e.Err.Error() }

func (e *BodyReadError) Unwrap() error { return e.Err }

// Outcome classifies an error for metrics and HTTP status mapping.
func Outcome(err error) string {
	var (
		ne *NetworkError
		be *BodyReadError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnsupportedMethod):
		return "unsupported_method"
	case errors.Is(err, ErrInvalidBody):
		return "invalid_body"
	case errors.As(err, &ne):
		return "network_error"
	case errors.As(err, &be):
		return "body_read_error"
	default:
		return "error"
	}
}
