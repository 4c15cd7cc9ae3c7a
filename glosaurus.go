package glosaurus

import (
	"context"
	"log/slog"

	"github.com/loykin/glosaurus/internal/app"
	"github.com/loykin/glosaurus/internal/bootstrap"
	cfg "github.com/loykin/glosaurus/internal/config"
	"github.com/loykin/glosaurus/internal/forwarder"
	"github.com/loykin/glosaurus/internal/history"
	"github.com/loykin/glosaurus/internal/metrics"
	"github.com/loykin/glosaurus/internal/platform"
	"github.com/loykin/glosaurus/internal/process"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = cfg.Config

type Status = process.Status

type App = app.App

type ProxyRequest = forwarder.Request

type Value = forwarder.Value

type HistoryEvent = history.Event

type RuntimeOutcome = bootstrap.Outcome

func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

func DefaultConfig() *Config { return cfg.Default() }

// New builds the desktop host for the running OS.
func New(c *Config, logger *slog.Logger) (*App, error) {
	return app.New(c, app.WithLogger(logger))
}

// NewWithReady is New with a callback receiving the front-end URL once the
// invocation API is listening.
func NewWithReady(c *Config, logger *slog.Logger, onReady func(url string)) (*App, error) {
	return app.New(c, app.WithLogger(logger), app.WithOnReady(onReady))
}

// Forward performs one proxied request with the forwarder settings from c.
func Forward(ctx context.Context, c *Config, req ProxyRequest) (Value, error) {
	return forwarder.New(c.Forwarder).Forward(ctx, req)
}

// DetectRuntime reports where the local AI runtime is installed, if anywhere.
func DetectRuntime(c *Config) (string, bool) {
	return bootstrap.New(c.Runtime, platform.Current()).Detect()
}

// InstallRuntime downloads and runs the runtime installer without prompting.
func InstallRuntime(ctx context.Context, c *Config, logger *slog.Logger) error {
	return bootstrap.New(c.Runtime, platform.Current(), bootstrap.WithLogger(logger)).Install(ctx)
}

// RecentHistory returns up to limit lifecycle events from the configured
// history store, newest first.
func RecentHistory(ctx context.Context, c *Config, limit int) ([]HistoryEvent, error) {
	s, err := history.NewSQLiteSink(c.History.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()
	return s.Recent(ctx, limit)
}

// Metrics helpers (public facade)

// ErrMetricsRegisteredElsewhere is returned when the host metrics were
// already registered with a different registerer. The collectors are
// process-wide, so only one registerer can own them; App.Run uses the
// default one.
var ErrMetricsRegisteredElsewhere = metrics.ErrRegisteredElsewhere

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
