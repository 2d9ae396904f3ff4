package main

import (
	"errors"

	"github.com/daichi-629/obsiscripta-mcp/internal/config"
	"github.com/spf13/cobra"
)

// Exit codes for the gateway CLI.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	ExitCodeConfig  = 2
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the public OAuth-protected remote MCP gateway",
	Long: `gateway terminates bearer-authenticated MCP sessions from remote
clients, resolves the caller's identity against an upstream OAuth/OIDC
provider, and routes each session's tool traffic to the plugin bridge
registered for that user.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func run() int {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(`{{printf "gateway version %s\n" .Version}}`)

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
