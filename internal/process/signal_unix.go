//go:build !windows

package process

import (
	"errors"
	"syscall"
)

// signalGroup signals the process group led by pid, falling back to the
// single process when no group exists.
func signalGroup(pid int, sig syscall.Signal) error {
	err := syscall.Kill(-pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return syscall.Kill(pid, sig)
	}
	return err
}
