package manager

import (
	"context"
	"log/slog"
	"sync"

	"github.com/loykin/glosaurus/internal/history"
	"github.com/loykin/glosaurus/internal/metrics"
	"github.com/loykin/glosaurus/internal/process"
)

// Manager holds the single supervised backend for the lifetime of the
// application window. The handle is shared between the setup path and the
// close handler, so every access goes through mu.
//
// There is no restart, health check or backoff: the backend is spawned once
// and terminated once.
type Manager struct {
	mu        sync.Mutex
	proc      *process.Process
	requested bool          // Terminate was called for the current run
	recorded  chan struct{} // closed once the current run's exit is recorded

	graceful bool
	runID    string
	sink     history.Sink
	logger   *slog.Logger
}

type Option func(*Manager)

func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.logger = l } }

// WithGracefulStop selects SIGTERM (true) or a hard kill (false) on Terminate.
func WithGracefulStop(v bool) Option { return func(m *Manager) { m.graceful = v } }

// WithHistory records start/stop events tagged with runID.
func WithHistory(sink history.Sink, runID string) Option {
	return func(m *Manager) {
		m.sink = sink
		m.runID = runID
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{graceful: true, sink: history.Nop{}, logger: slog.Default()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Start spawns the backend. At most one live process exists: a second Start
// while the first is running fails with process.ErrAlreadyRunning.
func (m *Manager) Start(spec process.Spec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.proc != nil && m.proc.Snapshot().Running {
		return process.ErrAlreadyRunning
	}
	p := process.New(spec)
	if err := p.Start(); err != nil {
		return err
	}
	m.proc = p
	m.requested = false
	m.recorded = make(chan struct{})

	st := p.Snapshot()
	m.logger.Info("backend started", "name", st.Name, "pid", st.PID, "path", spec.Path)
	metrics.IncBackendStart(st.Name)
	m.record(history.EventStart, st)
	go m.supervise(p, m.recorded)
	return nil
}

// Terminate stops the backend. It never fails: calling it before Start,
// twice, or after the backend exited on its own is a no-op, and OS errors
// are only logged.
func (m *Manager) Terminate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.proc == nil {
		return
	}
	st := m.proc.Snapshot()
	if !st.Running {
		return
	}
	m.requested = true
	if err := m.proc.Terminate(m.graceful); err != nil {
		m.logger.Debug("terminate backend", "name", st.Name, "pid", st.PID, "error", err)
		return
	}
	m.logger.Info("backend termination requested", "name", st.Name, "pid", st.PID, "graceful", m.graceful)
}

// Wait blocks until the current backend run has exited and its stop event
// has been handed to the history sink, or ctx ends.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	rec := m.recorded
	m.mu.Unlock()
	if rec == nil {
		return nil
	}
	select {
	case <-rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the backend status; Idle when nothing was started.
func (m *Manager) Status() process.Status {
	m.mu.Lock()
	p := m.proc
	m.mu.Unlock()
	if p == nil {
		return process.Status{State: process.StateIdle}
	}
	return p.Snapshot()
}

func (m *Manager) terminationRequested(p *process.Process) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proc == p && m.requested
}
