package main

import (
	"errors"

	"github.com/daichi-629/obsiscripta-mcp/internal/config"
	"github.com/spf13/cobra"
)

// Exit codes for the pluginbridge CLI.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	ExitCodeConfig  = 2
)

// version is injected at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "pluginbridge",
	Short: "Run the MCP plugin bridge alongside a note vault host",
	Long: `pluginbridge serves tool-call MCP traffic and a legacy v1 REST
surface from a single shared tool registry, bound to the host's loopback
interface. It is meant to run as a child process or sidecar of the vault
host, never exposed on a public interface.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func run() int {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(`{{printf "pluginbridge version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		return getExitCode(err)
	}
	return ExitCodeSuccess
}

func getExitCode(err error) int {
	var cfgErr *config.EnvConfigError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfig
	}
	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
