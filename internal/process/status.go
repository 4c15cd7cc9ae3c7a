package process

import (
	"errors"
	"time"
)

// State of the supervised process. The only transition after start is
// Running -> Terminated.
type State string

const (
	StateIdle       State = "idle"
	StateRunning    State = "running"
	StateTerminated State = "terminated"
)

var ErrAlreadyRunning = errors.New("process already running")

// SpawnError reports that the executable is missing or the OS refused to
// start it.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string { return "spawn " + e.Path + ": " + e.Err.Error() }

func (e *SpawnError) Unwrap() error { return e.Err }

// Status is a point-in-time copy of the process state.
type Status struct {
	Name      string    `json:"name"`
	State     State     `json:"state"`
	Running   bool      `json:"running"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at"`
	ExitError string    `json:"exit_error,omitempty"`
	Alive     bool      `json:"alive"`               // OS-level liveness probe
	RSSBytes  uint64    `json:"rss_bytes,omitempty"` // resident memory when alive
}
