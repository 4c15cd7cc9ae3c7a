package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/loykin/glosaurus"
	"github.com/loykin/glosaurus/internal/logger"
	"github.com/spf13/cobra"
)

// loadConfig reads the config and installs the host logger as the slog
// default.
func loadConfig(flags *GlobalFlags) (*glosaurus.Config, *slog.Logger, error) {
	cfg, err := glosaurus.LoadConfig(flags.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading config: %w", err)
	}
	if flags.LogLevel != "" {
		cfg.Log.Level = flags.LogLevel
	}
	l := logger.New(cfg.Log, os.Stderr)
	slog.SetDefault(l)
	return cfg, l, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// printValue pretty-prints a raw JSON value.
func printValue(w io.Writer, v json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, v, "", "  "); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, buf.String())
	return err
}
