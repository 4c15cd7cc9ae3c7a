package manager

import (
	"context"
	"time"

	"github.com/loykin/glosaurus/internal/history"
	"github.com/loykin/glosaurus/internal/metrics"
	"github.com/loykin/glosaurus/internal/process"
)

// supervise observes one run until exit and records it. It never restarts
// the backend.
func (m *Manager) supervise(p *process.Process, recorded chan struct{}) {
	defer close(recorded)
	<-p.Done()
	st := p.Snapshot()
	requested := m.terminationRequested(p)
	if requested {
		m.logger.Info("backend exited", "name", st.Name, "pid", st.PID, "exit", st.ExitError)
	} else {
		m.logger.Warn("backend exited unexpectedly", "name", st.Name, "pid", st.PID, "exit", st.ExitError)
	}
	metrics.IncBackendExit(st.Name, requested)
	m.record(history.EventStop, st)
}

func (m *Manager) record(t history.EventType, st process.Status) {
	at := st.StartedAt
	if t == history.EventStop {
		at = st.StoppedAt
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.sink.Send(ctx, history.Event{
		RunID:      m.runID,
		Type:       t,
		Name:       st.Name,
		PID:        st.PID,
		OccurredAt: at,
		ExitError:  st.ExitError,
	})
	if err != nil {
		m.logger.Warn("record backend history", "event", t, "error", err)
	}
}
