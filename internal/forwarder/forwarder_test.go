package forwarder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type captured struct {
	method      string
	path        string
	body        string
	contentType string
}

func newServer(t *testing.T, status int, respBody string, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if got != nil {
			*got = captured{method: r.Method, path: r.URL.Path, body: string(b), contentType: r.Header.Get("Content-Type")}
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// failTransport fails the test if any request reaches the network.
type failTransport struct{ t *testing.T }

func (f failTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	f.t.Errorf("unexpected network call: %s %s", r.Method, r.URL)
	return nil, errors.New("network disabled")
}

func TestForward_PostJSONReturnsStructuredValue(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, `{"ok":true}`, &got)

	v, err := New(Config{}).Forward(context.Background(), Request{
		Method: "POST", URL: srv.URL + "/x", Body: json.RawMessage(`{"a":1}`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(v))

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/x", got.path)
	assert.JSONEq(t, `{"a":1}`, got.body)
	assert.Equal(t, "application/json", got.contentType)
}

func TestForward_GetPlainTextBecomesString(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, "hello", &got)

	v, err := New(Config{}).Forward(context.Background(), Request{Method: "GET", URL: srv.URL + "/y"})
	require.NoError(t, err)

	var s string
	require.NoError(t, json.Unmarshal(v, &s))
	assert.Equal(t, "hello", s)
	assert.Empty(t, got.body, "GET without body must not carry a payload")
	assert.Empty(t, got.contentType)
}

func TestForward_NullBodyMeansNoPayload(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, `[]`, &got)

	_, err := New(Config{}).Forward(context.Background(), Request{Method: "put", URL: srv.URL, Body: json.RawMessage(" null ")})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, got.method)
	assert.Empty(t, got.body)
}

func TestForward_BodyOnGetIsSent(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, `1`, &got)

	_, err := New(Config{}).Forward(context.Background(), Request{Method: "get", URL: srv.URL, Body: json.RawMessage(`{"q":"x"}`)})
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, got.method)
	assert.JSONEq(t, `{"q":"x"}`, got.body)
}

func TestForward_UnsupportedMethod(t *testing.T) {
	f := New(Config{}, WithTransport(failTransport{t}))
	_, err := f.Forward(context.Background(), Request{Method: "PATCH", URL: "http://127.0.0.1:1/"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported method")
	assert.Equal(t, "Unsupported method: PATCH", err.Error())
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
	assert.Equal(t, "unsupported_method", Outcome(err))
}

func TestForward_UnsupportedMethodProperty(t *testing.T) {
	f := New(Config{}, WithTransport(failTransport{t}))
	supported := map[string]bool{"GET": true, "POST": true, "PUT": true, "DELETE": true}

	rapid.Check(t, func(rt *rapid.T) {
		m := rapid.StringMatching(`[A-Za-z]{0,10}`).Draw(rt, "method")
		if supported[strings.ToUpper(m)] {
			rt.Skip("supported method")
		}
		_, err := f.Forward(context.Background(), Request{Method: m, URL: "http://example.invalid/"})
		if !errors.Is(err, ErrUnsupportedMethod) {
			rt.Fatalf("method %q: expected unsupported method error, got %v", m, err)
		}
	})
}

func TestNormalizeMethod_CaseInsensitive(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := rapid.SampledFrom([]string{"get", "post", "put", "delete"}).Draw(rt, "method")
		var b strings.Builder
		for i, r := range base {
			if rapid.Bool().Draw(rt, "upper"+string(rune('0'+i))) {
				b.WriteString(strings.ToUpper(string(r)))
			} else {
				b.WriteRune(r)
			}
		}
		got, err := NormalizeMethod(b.String())
		if err != nil {
			rt.Fatalf("NormalizeMethod(%q): %v", b.String(), err)
		}
		if got != strings.ToUpper(base) {
			rt.Fatalf("NormalizeMethod(%q) = %q", b.String(), got)
		}
	})
}

func TestForward_ValidJSONReturnedUnchangedProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		doc := map[string]any{
			"word":     rapid.String().Draw(rt, "word"),
			"count":    rapid.IntRange(-1000, 1000).Draw(rt, "count"),
			"synonyms": rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), 0, 5).Draw(rt, "synonyms"),
			"flag":     rapid.Bool().Draw(rt, "flag"),
		}
		body, _ := json.Marshal(doc)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(body)
		}))
		defer srv.Close()

		v, err := New(Config{}).Forward(context.Background(), Request{Method: "GET", URL: srv.URL})
		if err != nil {
			rt.Fatalf("forward: %v", err)
		}
		if string(v) != string(body) {
			rt.Fatalf("value changed: got %s want %s", v, body)
		}
	})
}

func TestForward_ErrorStatusIsNotAnError(t *testing.T) {
	srv := newServer(t, http.StatusNotFound, `{"detail":"Not Found"}`, nil)
	v, err := New(Config{}).Forward(context.Background(), Request{Method: "DELETE", URL: srv.URL})
	require.NoError(t, err)
	assert.JSONEq(t, `{"detail":"Not Found"}`, string(v))
}

func TestForward_EmptyBodyIsEmptyString(t *testing.T) {
	srv := newServer(t, http.StatusNoContent, "", nil)
	v, err := New(Config{}).Forward(context.Background(), Request{Method: "POST", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, `""`, string(v))
}

func TestForward_NetworkError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = New(Config{}).Forward(context.Background(), Request{Method: "GET", URL: "http://" + addr + "/"})
	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.True(t, strings.HasPrefix(err.Error(), "request error: "))
	assert.Equal(t, "network_error", Outcome(err))
}

func TestForward_BadURLIsNetworkError(t *testing.T) {
	_, err := New(Config{}).Forward(context.Background(), Request{Method: "GET", URL: "://nope"})
	var ne *NetworkError
	assert.ErrorAs(t, err, &ne)
}

func TestForward_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	_, err := New(Config{Timeout: 50 * time.Millisecond}).Forward(context.Background(), Request{Method: "GET", URL: srv.URL})
	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
}

func TestForward_BodyReadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// promise more bytes than are sent, then drop the connection
		w.Header().Set("Content-Length", "100")
		_, _ = io.WriteString(w, "partial")
		w.(http.Flusher).Flush()
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, err := hj.Hijack()
			if err == nil {
				_ = conn.Close()
			}
		}
	}))
	defer srv.Close()

	_, err := New(Config{}).Forward(context.Background(), Request{Method: "GET", URL: srv.URL})
	var be *BodyReadError
	require.ErrorAs(t, err, &be)
	assert.True(t, strings.HasPrefix(err.Error(), "read body error: "))
	assert.Equal(t, "body_read_error", Outcome(err))
}

func TestForward_InvalidRequestBody(t *testing.T) {
	f := New(Config{}, WithTransport(failTransport{t}))
	_, err := f.Forward(context.Background(), Request{Method: "POST", URL: "http://x/", Body: json.RawMessage(`{nope`)})
	assert.ErrorIs(t, err, ErrInvalidBody)
}

func TestForward_HeadersAndUserAgent(t *testing.T) {
	var ua, token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua, token = r.Header.Get("User-Agent"), r.Header.Get("X-Token")
		_, _ = io.WriteString(w, "{}")
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "glosaurus/test", Headers: map[string]string{"X-Token": "abc"}})
	_, err := f.Forward(context.Background(), Request{Method: "GET", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "glosaurus/test", ua)
	assert.Equal(t, "abc", token)
}

func TestForward_RedirectPolicy(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"moved":true}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	v, err := New(Config{}).Forward(context.Background(), Request{Method: "GET", URL: srv.URL + "/old"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"moved":true}`, string(v))

	v, err = New(Config{MaxRedirects: -1}).Forward(context.Background(), Request{Method: "GET", URL: srv.URL + "/old"})
	require.NoError(t, err)
	assert.NotContains(t, string(v), "moved")
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "error", Outcome(errors.New("x")))
	assert.Equal(t, "invalid_body", Outcome(ErrInvalidBody))
}
