package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/loykin/glosaurus"
	"github.com/loykin/glosaurus/pkg/client"
)

// cmdRun runs the host until the window closes or the process is signalled.
func cmdRun(ctx context.Context, out io.Writer, cfg *glosaurus.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	gin.SetMode(gin.ReleaseMode)

	a, err := glosaurus.NewWithReady(cfg, log, func(url string) {
		_, _ = fmt.Fprintln(out, url)
	})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return a.Run(ctx)
}

func cmdProxy(ctx context.Context, out io.Writer, cfg *glosaurus.Config, f ProxyFlags) error {
	req := glosaurus.ProxyRequest{Method: f.Method, URL: f.URL}
	if f.Body != "" {
		req.Body = json.RawMessage(f.Body)
	}
	v, err := glosaurus.Forward(ctx, cfg, req)
	if err != nil {
		return err
	}
	return printValue(out, v)
}

type runtimeReport struct {
	Installed bool   `json:"installed"`
	Path      string `json:"path,omitempty"`
}

func cmdRuntimeCheck(out io.Writer, cfg *glosaurus.Config) error {
	path, ok := glosaurus.DetectRuntime(cfg)
	return printJSON(out, runtimeReport{Installed: ok, Path: path})
}

func cmdRuntimeInstall(ctx context.Context, out io.Writer, cfg *glosaurus.Config, log *slog.Logger) error {
	if path, ok := glosaurus.DetectRuntime(cfg); ok {
		return printJSON(out, runtimeReport{Installed: true, Path: path})
	}
	if err := glosaurus.InstallRuntime(ctx, cfg, log); err != nil {
		return fmt.Errorf("install runtime: %w", err)
	}
	path, ok := glosaurus.DetectRuntime(cfg)
	return printJSON(out, runtimeReport{Installed: ok, Path: path})
}

func newAPIClient(f InvokeFlags) *client.Client {
	return client.New(client.Config{BaseURL: f.APIUrl, Timeout: f.APITimeout})
}

func cmdInvokeGreet(ctx context.Context, out io.Writer, f InvokeFlags, name string) error {
	s, err := newAPIClient(f).Greet(ctx, name)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, s)
	return err
}

func cmdInvokeProxy(ctx context.Context, out io.Writer, f InvokeFlags, method, url, body string) error {
	req := client.ProxyRequest{Method: method, URL: url}
	if body != "" {
		req.Body = json.RawMessage(body)
	}
	v, err := newAPIClient(f).Proxy(ctx, req)
	if err != nil {
		return err
	}
	return printValue(out, v)
}

func cmdInvokeStatus(ctx context.Context, out io.Writer, f InvokeFlags) error {
	st, err := newAPIClient(f).Status(ctx)
	if err != nil {
		return err
	}
	return printJSON(out, st)
}

func cmdInvokeClose(ctx context.Context, out io.Writer, f InvokeFlags) error {
	if err := newAPIClient(f).Close(ctx); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out, "close requested")
	return err
}

func cmdHistory(ctx context.Context, out io.Writer, cfg *glosaurus.Config, f HistoryFlags) error {
	if !cfg.History.Enabled() {
		return errors.New("history is disabled: set history.path in the config")
	}
	evs, err := glosaurus.RecentHistory(ctx, cfg, f.Limit)
	if err != nil {
		return err
	}
	return printJSON(out, evs)
}
