// Package bootstrap makes sure the local AI runtime (Ollama) is installed
// before the backend starts. Nothing here is fatal: every failure is logged
// and reported as an Outcome so setup can carry on.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/loykin/glosaurus/internal/metrics"
	"github.com/loykin/glosaurus/internal/platform"
)

// RuntimeName is the executable looked up on the search path.
const RuntimeName = "ollama"

const (
	DefaultPollInterval    = time.Second
	DefaultPollAttempts    = 20
	DefaultDownloadTimeout = 10 * time.Minute
)

const (
	dialogTitle   = "Ollama"
	dialogMessage = "Ollama is not installed. It is needed for the AI features. Download and install it now?"
)

type Outcome string

const (
	OutcomePresent   Outcome = "present"
	OutcomeInstalled Outcome = "installed"
	OutcomeDeclined  Outcome = "declined"
	OutcomeFailed    Outcome = "failed"
	OutcomeDisabled  Outcome = "disabled"
)

// ErrNotReady is returned by Install when the runtime never showed up
// during the poll window.
var ErrNotReady = errors.New("runtime not detected after install")

type Config struct {
	Enabled         bool          `mapstructure:"enabled"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	PollAttempts    int           `mapstructure:"poll_attempts"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	TempDir         string        `mapstructure:"temp_dir"` // parent of the download dir; empty uses os.TempDir
}

type Bootstrapper struct {
	cfg      Config
	plat     platform.Platform
	client   *http.Client
	logger   *slog.Logger
	lookPath func(string) (string, error)
}

type Option func(*Bootstrapper)

func WithLogger(l *slog.Logger) Option { return func(b *Bootstrapper) { b.logger = l } }

func WithHTTPClient(c *http.Client) Option { return func(b *Bootstrapper) { b.client = c } }

// WithLookPath replaces the search path lookup.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(b *Bootstrapper) { b.lookPath = fn }
}

func New(cfg Config, plat platform.Platform, opts ...Option) *Bootstrapper {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = DefaultPollAttempts
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = DefaultDownloadTimeout
	}
	b := &Bootstrapper{
		cfg:      cfg,
		plat:     plat,
		client:   &http.Client{},
		logger:   slog.Default(),
		lookPath: exec.LookPath,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Detect returns the first existing well-known install path, falling back to
// the search path.
func (b *Bootstrapper) Detect() (string, bool) {
	for _, p := range b.plat.RuntimeCandidates() {
		if p == "" {
			continue
		}
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, true
		}
	}
	if p, err := b.lookPath(b.plat.ExecutableName(RuntimeName)); err == nil {
		return p, true
	}
	return "", false
}

// Ensure resolves the runtime: detect, otherwise ask, download, install and
// wait for it. It never returns an error.
func (b *Bootstrapper) Ensure(ctx context.Context) Outcome {
	out := b.ensure(ctx)
	metrics.IncBootstrap(string(out))
	return out
}

func (b *Bootstrapper) ensure(ctx context.Context) Outcome {
	if !b.cfg.Enabled {
		return OutcomeDisabled
	}
	if p, ok := b.Detect(); ok {
		b.logger.Debug("runtime present", "path", p)
		return OutcomePresent
	}
	yes, err := b.plat.Confirm(ctx, dialogTitle, dialogMessage)
	if err != nil {
		b.logger.Warn("runtime install prompt failed, skipping", "platform", b.plat.Name(), "error", err)
		return OutcomeDeclined
	}
	if !yes {
		b.logger.Info("runtime install declined")
		return OutcomeDeclined
	}
	if err := b.Install(ctx); err != nil {
		b.logger.Warn("runtime install failed", "error", err)
		return OutcomeFailed
	}
	return OutcomeInstalled
}

// Install downloads and runs the platform installer without prompting, then
// polls until the runtime is detected.
func (b *Bootstrapper) Install(ctx context.Context) error {
	inst := b.plat.Installer()
	dir, err := os.MkdirTemp(b.cfg.TempDir, "glosaurus-runtime-*")
	if err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(dir, inst.FileName)
	b.logger.Info("downloading runtime installer", "url", inst.URL, "dest", path)
	if err := b.download(ctx, inst.URL, path); err != nil {
		_ = os.RemoveAll(dir)
		return err
	}
	if err := b.plat.RunInstaller(ctx, path); err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("run installer: %w", err)
	}
	if !b.waitReady(ctx) {
		// the installer may still be running from dir; leave it in place
		b.logger.Warn("runtime not ready yet, keeping installer files", "dir", dir)
		return ErrNotReady
	}
	_ = os.RemoveAll(dir)
	return nil
}

func (b *Bootstrapper) download(ctx context.Context, url, dest string) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.DownloadTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}
	// #nosec G304 -- dest is inside a directory created by MkdirTemp
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o700)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return f.Close()
}

// waitReady polls Detect every PollInterval, at most PollAttempts times.
func (b *Bootstrapper) waitReady(ctx context.Context) bool {
	t := time.NewTicker(b.cfg.PollInterval)
	defer t.Stop()
	for i := 0; i < b.cfg.PollAttempts; i++ {
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
		}
		if p, ok := b.Detect(); ok {
			b.logger.Info("runtime ready", "path", p, "attempt", i+1)
			return true
		}
	}
	return false
}
