package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/glosaurus/internal/forwarder"
	"github.com/loykin/glosaurus/internal/metrics"
	"github.com/loykin/glosaurus/internal/process"
)

// Host is the application state the invocation API talks to.
type Host interface {
	Greet(name string) string
	Forward(ctx context.Context, req forwarder.Request) (forwarder.Value, error)
	Status() process.Status
	// RequestClose asks the window to close. It must not block.
	RequestClose()
}

// Router provides the front-end invocation surface over HTTP.
// Endpoints:
//
//	POST {basePath}/invoke/greet          body: {"name": "..."}
//	POST {basePath}/invoke/proxy_request  body: {"method","url","body"?}
//	GET  {basePath}/backend/status
//	POST {basePath}/window/close
//	GET  {basePath}/metrics
//
// basePath may be empty or start with '/'; no trailing slash. When
// frontendDir is set, unmatched GET requests are served from it.
type Router struct {
	host        Host
	basePath    string
	frontendDir string
	logger      *slog.Logger
}

type Option func(*Router)

func WithFrontendDir(dir string) Option { return func(r *Router) { r.frontendDir = dir } }

func WithLogger(l *slog.Logger) Option { return func(r *Router) { r.logger = l } }

func NewRouter(h Host, basePath string, opts ...Option) *Router {
	r := &Router{host: h, basePath: sanitizeBase(basePath), logger: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery(), r.logRequests())
	group := g.Group(r.basePath)
	group.POST("/invoke/greet", r.handleGreet)
	group.POST("/invoke/proxy_request", r.handleProxy)
	group.GET("/backend/status", r.handleStatus)
	group.POST("/window/close", r.handleClose)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	if r.frontendDir != "" {
		fs := http.StripPrefix(r.basePath, http.FileServer(http.Dir(r.frontendDir)))
		g.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
				writeJSON(c, http.StatusNotFound, errorResp{Error: "not found"})
				return
			}
			fs.ServeHTTP(c.Writer, c.Request)
		})
	}
	return g
}

func (r *Router) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		r.logger.Debug("api request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

// Server is a running loopback HTTP server.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// NewServer listens on addr and serves h in the background. Listen errors
// are returned immediately.
func NewServer(addr string, h http.Handler) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		ln: ln,
		srv: &http.Server{
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
	go func() { _ = s.srv.Serve(ln) }()
	return s, nil
}

// Addr is the bound address, useful when addr used port 0.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// URL is the http URL of the server including basePath.
func (s *Server) URL(basePath string) string {
	return "http://" + s.Addr() + sanitizeBase(basePath) + "/"
}

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type greetReq struct {
	Name string `json:"name"`
}

func (r *Router) handleGreet(c *gin.Context) {
	var req greetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, r.host.Greet(req.Name))
}

func (r *Router) handleProxy(c *gin.Context) {
	var req forwarder.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "url required"})
		return
	}
	v, err := r.host.Forward(c.Request.Context(), req)
	if err != nil {
		writeJSON(c, proxyStatus(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, v)
}

// proxyStatus maps caller mistakes to 400 and upstream failures to 502.
func proxyStatus(err error) int {
	switch {
	case errors.Is(err, forwarder.ErrUnsupportedMethod), errors.Is(err, forwarder.ErrInvalidBody):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func (r *Router) handleStatus(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.host.Status())
}

func (r *Router) handleClose(c *gin.Context) {
	r.host.RequestClose()
	writeJSON(c, http.StatusAccepted, okResp{OK: true})
}
