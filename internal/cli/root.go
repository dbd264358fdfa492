package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/vulnscan/internal/config"
	"github.com/dshills/vulnscan/internal/providers"
	"github.com/dshills/vulnscan/internal/scan"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

var rootCmd = &cobra.Command{
	Use:   "vulnscan",
	Short: "LLM-assisted vulnerability scanner",
	Long: "vulnscan splits source files into chunks, asks an LLM to find security issues in each, " +
		"and emits a single report with deterministic exit codes for CI gating.",
}

var flagLogLevel string

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (trace, debug, info, warn, error, off)")

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// exitCodeFor maps fatal provider errors and invalid configuration to 3 and
// anything else to a runtime failure.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case providers.IsFatal(err), errors.Is(err, config.ErrInvalid):
		return ExitAuthError
	default:
		return ExitRuntimeError
	}
}

// fail reports err on stderr and records its exit code.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	exitCode = exitCodeFor(err)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print vulnscan version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "vulnscan version %s\n", scan.Version())
	},
}
