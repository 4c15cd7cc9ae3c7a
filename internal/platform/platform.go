// Package platform holds the per-OS behaviour of the desktop host: executable
// naming, how the backend is stopped, native yes/no dialogs, where the local
// AI runtime lives and how its installer is launched.
//
// One Platform is selected at startup from runtime.GOOS; callers never
// branch on the OS themselves.
package platform

import (
	"context"
	"errors"
	"runtime"
	"strings"
)

// ErrNoDialog is returned by Confirm when no dialog utility is available.
var ErrNoDialog = errors.New("no native dialog utility available")

// Installer describes the downloadable installer artifact for the runtime.
type Installer struct {
	URL      string
	FileName string
}

// Platform is the per-OS strategy.
type Platform interface {
	Name() string
	// ExecutableName appends the platform's executable suffix to base.
	ExecutableName(base string) string
	// GracefulStop reports whether the OS supports a graceful termination
	// signal. When false the backend is killed outright.
	GracefulStop() bool
	// Confirm shows a native yes/no dialog. A "no" answer is (false, nil).
	Confirm(ctx context.Context, title, message string) (bool, error)
	// RuntimeCandidates lists well-known install paths of the AI runtime.
	RuntimeCandidates() []string
	Installer() Installer
	// RunInstaller launches a downloaded installer artifact.
	RunInstaller(ctx context.Context, path string) error
	// OpenURL opens url in the user's default browser.
	OpenURL(ctx context.Context, url string) error
}

// Current returns the strategy for the running OS.
func Current() Platform { return ForOS(runtime.GOOS, ExecRunner{}) }

// ForOS returns the strategy for goos using r to run native utilities.
// Unknown Unix-likes get the Linux behaviour.
func ForOS(goos string, r Runner) Platform {
	if r == nil {
		r = ExecRunner{}
	}
	switch goos {
	case "windows":
		return &windows{run: r}
	case "darwin":
		return &darwin{run: r}
	default:
		return &linux{run: r, goos: goos}
	}
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}
