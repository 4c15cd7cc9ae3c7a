package metrics

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK   atomic.Bool
	regMu   sync.Mutex
	regWith prometheus.Registerer

	backendStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glosaurus",
			Subsystem: "backend",
			Name:      "starts_total",
			Help:      "Number of successful backend spawns.",
		}, []string{"name"},
	)
	backendExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glosaurus",
			Subsystem: "backend",
			Name:      "exits_total",
			Help:      "Number of backend exits, by whether termination was requested.",
		}, []string{"name", "requested"},
	)
	backendRunning = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "glosaurus",
			Subsystem: "backend",
			Name:      "running",
			Help:      "1 while the backend process is running.",
		}, []string{"name"},
	)
	proxyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glosaurus",
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Forwarded requests by method and outcome.",
		}, []string{"method", "outcome"},
	)
	proxyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "glosaurus",
			Subsystem: "proxy",
			Name:      "request_duration_seconds",
			Help:      "Time spent forwarding a request, including reading the body.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"},
	)
	bootstrapOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glosaurus",
			Subsystem: "runtime",
			Name:      "bootstrap_total",
			Help:      "Runtime bootstrap results.",
		}, []string{"outcome"},
	)
)

// ErrRegisteredElsewhere is returned by Register when the collectors already
// belong to a different registerer.
var ErrRegisteredElsewhere = errors.New("metrics already registered with another registerer")

// Register registers all metrics with the provided registerer. Repeated calls
// with the same registerer are no-ops; the collectors are process-wide, so a
// different registerer after success fails with ErrRegisteredElsewhere.
func Register(r prometheus.Registerer) error {
	regMu.Lock()
	defer regMu.Unlock()
	if regOK.Load() {
		if r != regWith {
			return ErrRegisteredElsewhere
		}
		return nil
	}
	cs := []prometheus.Collector{backendStarts, backendExits, backendRunning, proxyRequests, proxyDuration, bootstrapOutcomes}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regWith = r
	regOK.Store(true)
	return nil
}

// Handler serves the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Recording helpers no-op until Register succeeds.

func IncBackendStart(name string) {
	if regOK.Load() {
		backendStarts.WithLabelValues(name).Inc()
		backendRunning.WithLabelValues(name).Set(1)
	}
}

func IncBackendExit(name string, requested bool) {
	if regOK.Load() {
		req := "false"
		if requested {
			req = "true"
		}
		backendExits.WithLabelValues(name, req).Inc()
		backendRunning.WithLabelValues(name).Set(0)
	}
}

func ObserveProxy(method, outcome string, d time.Duration) {
	if regOK.Load() {
		proxyRequests.WithLabelValues(method, outcome).Inc()
		proxyDuration.WithLabelValues(method).Observe(d.Seconds())
	}
}

func IncBootstrap(outcome string) {
	if regOK.Load() {
		bootstrapOutcomes.WithLabelValues(outcome).Inc()
	}
}
