package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/loykin/glosaurus/pkg/client"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	root := buildRoot()
	if err := root.ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the root command with its subcommands
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	root := createRootCommand(globalFlags)
	root.AddCommand(
		createRunCommand(globalFlags),
		createProxyCommand(globalFlags),
		createRuntimeCommand(globalFlags),
		createInvokeCommand(),
		createHistoryCommand(globalFlags),
		createVersionCommand(),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "glosaurus",
		Short: "Desktop host for the glosaurus backend",
		Long: `Glosaurus hosts the desktop application: it makes sure the local AI
runtime is installed, starts the bundled backend, serves the front-end's
invocation API on loopback and stops the backend when the window closes.

Examples:
  glosaurus run --config glosaurus.toml
  glosaurus proxy GET http://127.0.0.1:8000/glossaries
  glosaurus invoke status
  glosaurus runtime check`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "override log level (debug, info, warn, error)")
	return root
}

func createRunCommand(globalFlags *GlobalFlags) *cobra.Command {
	runFlags := &RunFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the backend and serve the invocation API until the window closes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(globalFlags)
			if err != nil {
				return err
			}
			runFlags.apply(cmd, cfg)
			return cmdRun(commandContext(cmd), cmd.OutOrStdout(), cfg, log)
		},
	}
	cmd.Flags().StringVar(&runFlags.Addr, "addr", "", "listen address of the invocation API")
	cmd.Flags().StringVar(&runFlags.ResourceDir, "resource-dir", "", "directory holding bin/backend")
	cmd.Flags().StringVar(&runFlags.Backend, "backend", "", "explicit backend executable path")
	cmd.Flags().StringVar(&runFlags.FrontendDir, "frontend-dir", "", "serve front-end files from this directory")
	cmd.Flags().BoolVar(&runFlags.Open, "open", false, "open the front-end in the default browser")
	cmd.Flags().BoolVar(&runFlags.NoRuntime, "no-runtime", false, "skip the AI runtime check")
	cmd.Flags().DurationVar(&runFlags.CloseWait, "close-wait", 0, "wait this long for the backend to exit on close")
	return cmd
}

func createProxyCommand(globalFlags *GlobalFlags) *cobra.Command {
	proxyFlags := &ProxyFlags{}
	cmd := &cobra.Command{
		Use:   "proxy METHOD URL",
		Short: "Perform one forwarded request and print the JSON value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(globalFlags)
			if err != nil {
				return err
			}
			proxyFlags.Method, proxyFlags.URL = args[0], args[1]
			if cmd.Flags().Changed("timeout") {
				cfg.Forwarder.Timeout = proxyFlags.Timeout
			}
			return cmdProxy(commandContext(cmd), cmd.OutOrStdout(), cfg, *proxyFlags)
		},
	}
	cmd.Flags().StringVar(&proxyFlags.Body, "body", "", "JSON request body")
	cmd.Flags().DurationVar(&proxyFlags.Timeout, "timeout", 0, "request timeout (0 = none)")
	return cmd
}

func createRuntimeCommand(globalFlags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runtime",
		Short: "Inspect or install the local AI runtime",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Report whether the runtime is installed",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, _, err := loadConfig(globalFlags)
				if err != nil {
					return err
				}
				return cmdRuntimeCheck(cmd.OutOrStdout(), cfg)
			},
		},
		&cobra.Command{
			Use:   "install",
			Short: "Download and run the runtime installer",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, log, err := loadConfig(globalFlags)
				if err != nil {
					return err
				}
				return cmdRuntimeInstall(commandContext(cmd), cmd.OutOrStdout(), cfg, log)
			},
		},
	)
	return cmd
}

func createInvokeCommand() *cobra.Command {
	invokeFlags := &InvokeFlags{}
	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Call a running host's invocation API",
	}
	cmd.PersistentFlags().StringVar(&invokeFlags.APIUrl, "api-url", client.DefaultBaseURL, "base URL of the running host")
	cmd.PersistentFlags().DurationVar(&invokeFlags.APITimeout, "api-timeout", 30*time.Second, "API request timeout")

	var body string
	proxy := &cobra.Command{
		Use:   "proxy METHOD URL",
		Short: "Forward a request through the running host",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdInvokeProxy(commandContext(cmd), cmd.OutOrStdout(), *invokeFlags, args[0], args[1], body)
		},
	}
	proxy.Flags().StringVar(&body, "body", "", "JSON request body")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "greet NAME",
			Short: "Call greet",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return cmdInvokeGreet(commandContext(cmd), cmd.OutOrStdout(), *invokeFlags, args[0])
			},
		},
		proxy,
		&cobra.Command{
			Use:   "status",
			Short: "Show the backend status",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return cmdInvokeStatus(commandContext(cmd), cmd.OutOrStdout(), *invokeFlags)
			},
		},
		&cobra.Command{
			Use:   "close",
			Short: "Request the window to close",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return cmdInvokeClose(commandContext(cmd), cmd.OutOrStdout(), *invokeFlags)
			},
		},
	)
	return cmd
}

func createHistoryCommand(globalFlags *GlobalFlags) *cobra.Command {
	historyFlags := &HistoryFlags{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent backend lifecycle events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(globalFlags)
			if err != nil {
				return err
			}
			return cmdHistory(commandContext(cmd), cmd.OutOrStdout(), cfg, *historyFlags)
		},
	}
	cmd.Flags().IntVar(&historyFlags.Limit, "limit", 20, "number of events to show")
	return cmd
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "glosaurus", version)
		},
	}
}
