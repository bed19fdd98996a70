// Package main is the CLI entry point for Volition, a single-process
// conversational coding agent: load Volition.toml, wire the configured
// providers and tool-servers, and drive one orchestrator run per invocation.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "volition",
		Short:   "Volition - a conversational coding agent core",
		Version: version,
		Long: `Volition drives a single agent session against a configured chat-model
provider and a set of MCP-protocol tool-servers, following a pluggable
strategy (complete_task, plan_execute, conversation).

Configuration is read from Volition.toml, discovered by walking up from the
working directory.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		buildRunCmd(),
		buildSessionsCmd(),
	)
	return root
}

func fail(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
