package platform

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

type darwin struct {
	run Runner
}

func (p *darwin) Name() string { return "darwin" }

func (p *darwin) ExecutableName(base string) string { return base }

func (p *darwin) GracefulStop() bool { return true }

// Confirm uses an AppleScript dialog. Pressing "No" cancels the dialog,
// which osascript reports as a non-zero exit.
func (p *darwin) Confirm(ctx context.Context, title, message string) (bool, error) {
	script := fmt.Sprintf(`display dialog "%s" with title "%s" buttons {"No", "Yes"} default button "Yes" cancel button "No"`,
		appleQuote(message), appleQuote(title))
	out, err := p.run.Run(ctx, "osascript", "-e", script)
	if err != nil {
		if isExit(err) {
			return false, nil
		}
		return false, err
	}
	return strings.Contains(string(out), "button returned:Yes"), nil
}

func (p *darwin) RuntimeCandidates() []string {
	return []string{
		"/usr/local/bin/ollama",
		"/opt/homebrew/bin/ollama",
		"/usr/bin/ollama",
		"/Applications/Ollama.app/Contents/Resources/ollama",
	}
}

func (p *darwin) Installer() Installer {
	return Installer{URL: "https://ollama.com/download/Ollama-darwin.zip", FileName: "Ollama-darwin.zip"}
}

// RunInstaller unpacks the app bundle next to the archive and launches it.
// The app installs its command line tool on first start.
func (p *darwin) RunInstaller(ctx context.Context, path string) error {
	dir := filepath.Dir(path)
	if _, err := p.run.Run(ctx, "unzip", "-o", "-q", path, "-d", dir); err != nil {
		return fmt.Errorf("unzip installer: %w", err)
	}
	if _, err := p.run.Run(ctx, "open", filepath.Join(dir, "Ollama.app")); err != nil {
		return fmt.Errorf("launch installer: %w", err)
	}
	return nil
}

func (p *darwin) OpenURL(ctx context.Context, url string) error {
	_, err := p.run.Run(ctx, "open", url)
	return err
}

func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
