// Package cmd implements the docshed command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/3leaps/docshed/internal/observability"
)

// versionInfo holds build metadata injected at link time.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata for the version command and the
// /version endpoint.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	rootLogLevel string
	rootQuiet    bool
	rootConfig   string
)

var rootCmd = &cobra.Command{
	Use:   "docshed",
	Short: "On-demand documentation server for versioned packages",
	Long: `docshed serves generated reference documentation for versioned packages,
generating each (name, version) artifact on first request and caching it on
disk. Concurrent requests for the same version share one generation job.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if rootConfig != "" {
			// The loader reads the explicit config path from the environment.
			if err := os.Setenv("DOCSHED_CONFIG", rootConfig); err != nil {
				return err
			}
		}
		return observability.InitCLILogger(rootLogLevel, rootQuiet)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVarP(&rootQuiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().StringVar(&rootConfig, "config", "", "Path to config file")
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return fmt.Errorf("%s: %w (exit code %d)", message, err, code)
}
