package process

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/loykin/glosaurus/internal/logger"
)

// Spec describes the sidecar executable to supervise.
type Spec struct {
	Name         string        `json:"name"`
	Path         string        `json:"path"`          // executable path, absolute or relative to the host's cwd
	Args         []string      `json:"args"`          // optional arguments
	WorkDir      string        `json:"work_dir"`      // optional working dir
	Env          []string      `json:"env"`           // full environment; nil inherits the host's
	InheritStdio bool          `json:"inherit_stdio"` // attach to the host's stdout/stderr when no log files are set
	Log          logger.Config `json:"log"`
}

// Validate checks the executable before any spawn attempt so a missing
// backend surfaces as a SpawnError rather than an opaque exec failure.
func (s Spec) Validate() error {
	if s.Path == "" {
		return &SpawnError{Path: s.Path, Err: fmt.Errorf("executable path is empty")}
	}
	fi, err := os.Stat(s.Path)
	if err != nil {
		return &SpawnError{Path: s.Path, Err: err}
	}
	if fi.IsDir() {
		return &SpawnError{Path: s.Path, Err: fmt.Errorf("is a directory")}
	}
	if s.WorkDir != "" {
		wd, err := os.Stat(s.WorkDir)
		if err != nil {
			return &SpawnError{Path: s.Path, Err: fmt.Errorf("work dir: %w", err)}
		}
		if !wd.IsDir() {
			return &SpawnError{Path: s.Path, Err: fmt.Errorf("work dir %s is not a directory", s.WorkDir)}
		}
	}
	return nil
}

// DisplayName is the name used in logs, metrics and history.
func (s Spec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return filepath.Base(s.Path)
}

func (s Spec) command() *exec.Cmd {
	// #nosec G204 -- the executable comes from the host's own configuration
	cmd := exec.Command(s.Path, s.Args...)
	if s.WorkDir != "" {
		cmd.Dir = s.WorkDir
	}
	if s.Env != nil {
		cmd.Env = s.Env
	}
	configureSysProcAttr(cmd)
	return cmd
}
