//go:build windows

package process

import (
	"os"
	"syscall"
)

// signalGroup terminates pid. Windows has no signal delivery for console-less
// children, so every signal is a hard termination.
func signalGroup(pid int, _ syscall.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		// already gone
		return nil
	}
	return p.Kill()
}
