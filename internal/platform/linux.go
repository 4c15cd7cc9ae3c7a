package platform

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

type linux struct {
	run  Runner
	goos string
}

func (p *linux) Name() string {
	if p.goos == "" {
		return "linux"
	}
	return p.goos
}

func (p *linux) ExecutableName(base string) string { return base }

func (p *linux) GracefulStop() bool { return true }

// Confirm tries zenity first and falls back to kdialog. Both report the
// answer through the exit status: 0 is yes, 1 is no.
func (p *linux) Confirm(ctx context.Context, title, message string) (bool, error) {
	_, err := p.run.Run(ctx, "zenity", "--question", "--title", title, "--text", message)
	if err == nil {
		return true, nil
	}
	if isExit(err) {
		return false, nil
	}
	if !errors.Is(err, exec.ErrNotFound) {
		return false, err
	}
	_, err = p.run.Run(ctx, "kdialog", "--title", title, "--yesno", message)
	switch {
	case err == nil:
		return true, nil
	case isExit(err):
		return false, nil
	case errors.Is(err, exec.ErrNotFound):
		return false, ErrNoDialog
	default:
		return false, err
	}
}

func (p *linux) RuntimeCandidates() []string {
	return []string{
		"/usr/local/bin/ollama",
		"/usr/bin/ollama",
		"/snap/bin/ollama",
	}
}

func (p *linux) Installer() Installer {
	return Installer{URL: "https://ollama.com/install.sh", FileName: "ollama-install.sh"}
}

func (p *linux) RunInstaller(ctx context.Context, path string) error {
	if _, err := p.run.Run(ctx, "sh", path); err != nil {
		return fmt.Errorf("install script: %w", err)
	}
	return nil
}

func (p *linux) OpenURL(ctx context.Context, url string) error {
	_, err := p.run.Run(ctx, "xdg-open", url)
	return err
}
