package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type windows struct {
	run Runner
}

func (p *windows) Name() string { return "windows" }

func (p *windows) ExecutableName(base string) string {
	if hasSuffixFold(base, ".exe") {
		return base
	}
	return base + ".exe"
}

// GracefulStop is false: there is no SIGTERM equivalent for a console-less
// child, so the backend is terminated outright.
func (p *windows) GracefulStop() bool { return false }

func (p *windows) Confirm(ctx context.Context, title, message string) (bool, error) {
	script := fmt.Sprintf(
		"Add-Type -AssemblyName System.Windows.Forms; [System.Windows.Forms.MessageBox]::Show('%s','%s','YesNo','Question')",
		psQuote(message), psQuote(title))
	out, err := p.run.Run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	if err != nil {
		if isExit(err) {
			return false, nil
		}
		return false, err
	}
	return strings.TrimSpace(string(out)) == "Yes", nil
}

func (p *windows) RuntimeCandidates() []string {
	c := []string{
		`C:\Program Files\Ollama\ollama.exe`,
		`C:\Program Files (x86)\Ollama\ollama.exe`,
	}
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		c = append(c, filepath.Join(local, "Programs", "Ollama", "ollama.exe"))
	}
	return c
}

func (p *windows) Installer() Installer {
	return Installer{URL: "https://ollama.com/download/OllamaSetup.exe", FileName: "OllamaSetup.exe"}
}

func (p *windows) RunInstaller(ctx context.Context, path string) error {
	if _, err := p.run.Run(ctx, path); err != nil {
		return fmt.Errorf("run installer: %w", err)
	}
	return nil
}

func (p *windows) OpenURL(ctx context.Context, url string) error {
	_, err := p.run.Run(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	return err
}

func psQuote(s string) string { return strings.ReplaceAll(s, "'", "''") }
