package process

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// Process owns one child process handle. All fields are guarded by mu;
// cmd.Wait is only ever called by the goroutine started in Start.
type Process struct {
	spec      Spec
	mu        sync.Mutex
	cmd       *exec.Cmd
	status    Status
	outCloser io.WriteCloser
	errCloser io.WriteCloser
	waitDone  chan struct{} // closed when cmd.Wait returns
}

func New(spec Spec) *Process {
	return &Process{spec: spec, status: Status{Name: spec.DisplayName(), State: StateIdle}}
}

// Start spawns the executable. It fails with ErrAlreadyRunning while a
// previous run is live, and with *SpawnError when the executable is missing
// or cannot be started.
func (r *Process) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.State == StateRunning {
		return ErrAlreadyRunning
	}
	if err := r.spec.Validate(); err != nil {
		return err
	}
	cmd := r.spec.command()
	if err := r.attachStdio(cmd); err != nil {
		return &SpawnError{Path: r.spec.Path, Err: err}
	}
	if err := cmd.Start(); err != nil {
		r.closeWritersLocked()
		return &SpawnError{Path: r.spec.Path, Err: err}
	}
	done := make(chan struct{})
	r.cmd = cmd
	r.waitDone = done
	r.status = Status{
		Name:      r.spec.DisplayName(),
		State:     StateRunning,
		Running:   true,
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
	}
	go r.reap(cmd, done)
	return nil
}

// attachStdio routes each stream to its rotating file when one is
// configured, else to the host's stream with InheritStdio, else to the null
// device.
func (r *Process) attachStdio(cmd *exec.Cmd) error {
	if r.spec.InheritStdio {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	if !r.spec.Log.File.Enabled() {
		return nil
	}
	outW, errW, err := r.spec.Log.ProcessWriters(r.spec.DisplayName())
	if err != nil {
		return err
	}
	r.outCloser, r.errCloser = outW, errW
	if outW != nil {
		cmd.Stdout = outW
	}
	if errW != nil {
		cmd.Stderr = errW
	}
	return nil
}

func (r *Process) reap(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()
	r.mu.Lock()
	r.status.State = StateTerminated
	r.status.Running = false
	r.status.StoppedAt = time.Now()
	if err != nil {
		r.status.ExitError = err.Error()
	}
	r.closeWritersLocked()
	r.mu.Unlock()
	close(done)
}

func (r *Process) closeWritersLocked() {
	if r.outCloser != nil {
		_ = r.outCloser.Close()
		r.outCloser = nil
	}
	if r.errCloser != nil {
		_ = r.errCloser.Close()
		r.errCloser = nil
	}
}

// Terminate asks the process to exit. With graceful set it sends SIGTERM to
// the process group and never escalates; otherwise the process is killed.
// Calling it before start, after exit, or repeatedly is a no-op.
func (r *Process) Terminate(graceful bool) error {
	r.mu.Lock()
	cmd := r.cmd
	running := r.status.State == StateRunning
	r.mu.Unlock()
	if cmd == nil || cmd.Process == nil || !running {
		return nil
	}
	var err error
	if graceful {
		err = signalGroup(cmd.Process.Pid, syscall.SIGTERM)
	} else {
		err = cmd.Process.Kill()
	}
	if err == nil || isGone(err) {
		return nil
	}
	return err
}

// Done is closed once the current run has exited. It is nil before the
// first Start.
func (r *Process) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.waitDone == nil {
		return nil
	}
	return r.waitDone
}

// Wait blocks until the current run exits or ctx ends. It returns nil
// immediately when nothing was started.
func (r *Process) Wait(ctx context.Context) error {
	done := r.Done()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the current status including an OS-level
// liveness probe.
func (r *Process) Snapshot() Status {
	r.mu.Lock()
	s := r.status
	r.mu.Unlock()
	if s.Running && s.PID > 0 {
		s.Alive, s.RSSBytes = inspect(s.PID)
	}
	return s
}

// inspect probes pid through gopsutil. Zombies count as not alive.
func inspect(pid int) (bool, uint64) {
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return false, 0
	}
	if st, err := p.Status(); err == nil {
		for _, s := range st {
			if s == gopsproc.Zombie {
				return false, 0
			}
		}
	}
	var rss uint64
	if mi, err := p.MemoryInfo(); err == nil && mi != nil {
		rss = mi.RSS
	}
	return true, rss
}

func isGone(err error) bool {
	return errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH)
}
