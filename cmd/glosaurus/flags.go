package main

import (
	"time"

	"github.com/loykin/glosaurus"
	"github.com/spf13/cobra"
)

// Flag structs decouple cobra from logic for testing.

type GlobalFlags struct {
	ConfigPath string
	LogLevel   string
}

type RunFlags struct {
	Addr        string
	ResourceDir string
	Backend     string
	FrontendDir string
	Open        bool
	NoRuntime   bool
	CloseWait   time.Duration
}

// apply overrides cfg with the flags the user actually set.
func (f *RunFlags) apply(cmd *cobra.Command, cfg *glosaurus.Config) {
	changed := cmd.Flags().Changed
	if changed("addr") {
		cfg.Server.Addr = f.Addr
	}
	if changed("resource-dir") {
		cfg.Backend.ResourceDir = f.ResourceDir
	}
	if changed("backend") {
		cfg.Backend.Path = f.Backend
	}
	if changed("frontend-dir") {
		cfg.Server.FrontendDir = f.FrontendDir
	}
	if changed("open") {
		cfg.Server.OpenBrowser = f.Open
	}
	if changed("no-runtime") {
		cfg.Runtime.Enabled = !f.NoRuntime
	}
	if changed("close-wait") {
		cfg.CloseWait = f.CloseWait
	}
}

type ProxyFlags struct {
	Method  string
	URL     string
	Body    string
	Timeout time.Duration
}

// InvokeFlags hold the connection to a running host.
type InvokeFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

type HistoryFlags struct {
	Limit int
}
