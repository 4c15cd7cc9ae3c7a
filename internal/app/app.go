// Package app is the desktop host's state container. It wires setup order
// (runtime bootstrap, then backend start, then the invocation API) and
// turns a close request into backend termination.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/loykin/glosaurus/internal/bootstrap"
	"github.com/loykin/glosaurus/internal/config"
	"github.com/loykin/glosaurus/internal/forwarder"
	"github.com/loykin/glosaurus/internal/history"
	"github.com/loykin/glosaurus/internal/manager"
	"github.com/loykin/glosaurus/internal/metrics"
	"github.com/loykin/glosaurus/internal/platform"
	"github.com/loykin/glosaurus/internal/process"
	"github.com/loykin/glosaurus/internal/server"
	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	cfg    *config.Config
	plat   platform.Platform
	logger *slog.Logger
	runID  string

	sink history.Sink
	mgr  *manager.Manager
	fwd  *forwarder.Forwarder
	boot *bootstrap.Bootstrapper

	bootOpts []bootstrap.Option
	onReady  func(url string)

	closeReqOnce sync.Once
	closeReq     chan struct{} // window asked to close
	closeOnce    sync.Once
	closed       chan struct{} // window closed
}

type Option func(*App)

func WithLogger(l *slog.Logger) Option { return func(a *App) { a.logger = l } }

func WithPlatform(p platform.Platform) Option { return func(a *App) { a.plat = p } }

// WithHistory overrides the sink built from the history config.
func WithHistory(s history.Sink) Option { return func(a *App) { a.sink = s } }

func WithBootstrapOptions(opts ...bootstrap.Option) Option {
	return func(a *App) { a.bootOpts = append(a.bootOpts, opts...) }
}

// WithOnReady is called with the front-end URL once the API is listening.
func WithOnReady(fn func(url string)) Option { return func(a *App) { a.onReady = fn } }

func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:      cfg,
		logger:   slog.Default(),
		runID:    uuid.NewString(),
		closeReq: make(chan struct{}),
		closed:   make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	if a.plat == nil {
		a.plat = platform.Current()
	}
	if a.sink == nil {
		a.sink = history.Nop{}
		if cfg.History.Enabled() {
			s, err := history.NewSQLiteSink(cfg.History.Path)
			if err != nil {
				return nil, fmt.Errorf("open history: %w", err)
			}
			a.sink = s
		}
	}
	a.mgr = manager.NewManager(
		manager.WithLogger(a.logger),
		manager.WithGracefulStop(a.plat.GracefulStop()),
		manager.WithHistory(a.sink, a.runID),
	)
	a.fwd = forwarder.New(cfg.Forwarder, forwarder.WithLogger(a.logger))
	a.boot = bootstrap.New(cfg.Runtime, a.plat, append([]bootstrap.Option{bootstrap.WithLogger(a.logger)}, a.bootOpts...)...)
	return a, nil
}

// RunID identifies this host run in the lifecycle history.
func (a *App) RunID() string { return a.runID }

// Setup resolves the runtime and starts the backend. The backend is started
// whatever the bootstrap outcome; a spawn failure is returned.
func (a *App) Setup(ctx context.Context) error {
	out := a.boot.Ensure(ctx)
	a.logger.Info("runtime bootstrap", "outcome", out)

	spec, err := a.cfg.BackendSpec(a.plat)
	if err != nil {
		return err
	}
	a.logger.Info("backend path", "path", spec.Path)
	if err := a.mgr.Start(spec); err != nil {
		return fmt.Errorf("start backend: %w", err)
	}
	return nil
}

func (a *App) Greet(name string) string {
	return fmt.Sprintf("Hello, %s! You've been greeted from Go!", name)
}

func (a *App) Forward(ctx context.Context, req forwarder.Request) (forwarder.Value, error) {
	return a.fwd.Forward(ctx, req)
}

func (a *App) Status() process.Status { return a.mgr.Status() }

// RequestClose signals Run that the window wants to close.
func (a *App) RequestClose() {
	a.closeReqOnce.Do(func() { close(a.closeReq) })
}

// CloseRequested terminates the backend, waits at most close_wait for it to
// exit, then lets the window close. Later calls are no-ops.
func (a *App) CloseRequested(ctx context.Context) {
	a.closeOnce.Do(func() {
		a.RequestClose()
		a.mgr.Terminate()
		if a.cfg.CloseWait > 0 {
			wctx, cancel := context.WithTimeout(ctx, a.cfg.CloseWait)
			if err := a.mgr.Wait(wctx); err != nil {
				a.logger.Warn("backend still running at close", "wait", a.cfg.CloseWait, "error", err)
			}
			cancel()
		}
		close(a.closed)
	})
}

// Closed is closed once CloseRequested has finished.
func (a *App) Closed() <-chan struct{} { return a.closed }

// Run sets up the backend, serves the invocation API and blocks until a
// close is requested through the API or ctx ends.
func (a *App) Run(ctx context.Context) error {
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		a.logger.Warn("register metrics", "error", err)
	}
	if err := a.Setup(ctx); err != nil {
		return err
	}

	sc := a.cfg.Server
	router := server.NewRouter(a, sc.BasePath,
		server.WithFrontendDir(sc.FrontendDir),
		server.WithLogger(a.logger),
	)
	srv, err := server.NewServer(sc.Addr, router.Handler())
	if err != nil {
		a.CloseRequested(context.Background())
		return fmt.Errorf("listen %s: %w", sc.Addr, err)
	}
	url := srv.URL(sc.BasePath)
	a.logger.Info("invocation api listening", "url", url, "run_id", a.runID)
	if sc.OpenBrowser {
		if err := a.plat.OpenURL(ctx, url); err != nil {
			a.logger.Warn("open front-end", "url", url, "error", err)
		}
	}
	if a.onReady != nil {
		a.onReady(url)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case <-a.closeReq:
		a.logger.Info("window close requested")
	}
	a.CloseRequested(context.Background())

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		a.logger.Warn("api shutdown", "error", err)
	}
	return nil
}

// Close closes the window if that has not happened yet, gives the backend's
// exit a bounded time to reach the history store, then releases the store.
func (a *App) Close() error {
	a.CloseRequested(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.mgr.Wait(ctx); err != nil {
		a.logger.Warn("backend exit not recorded before close", "error", err)
	}
	return a.sink.Close()
}
