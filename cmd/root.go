package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"geodns/internal/config"
)

// Exit codes for the geodns binary. Only startup problems are fatal; steady
// state failures are logged and retried by the run loops.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error.
	ExitCodeError = 1
	// ExitCodeConfig indicates missing or invalid startup configuration.
	ExitCodeConfig = 2
)

// rootCmd represents the base command for the geodns agent.
var rootCmd = &cobra.Command{
	Use:   "geodns",
	Short: "Keep a shared geo-routed DNS record converged across clusters",
	Long: `geodns is a per-cluster agent that watches ingresses and publishes this
cluster's load balancer address as one location entry in a shared geo-routed
Cloud DNS record. Agents in other clusters maintain their own entries in the
same record; convergence is coordinated entirely through atomic change sets
against the record itself.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from the main
// package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI. Called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "geodns version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps error types to semantic exit codes for scripting and
// container orchestration.
func getExitCode(err error) int {
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return ExitCodeConfig
	}
	return ExitCodeError
}
