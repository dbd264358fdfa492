// Package cli wires together the Cobra command tree for the vulnscan binary.
//
// It defines the root command and its subcommands (scan, config, models,
// cache, version), binds flags, reads configuration, runs the scanner and
// returns deterministic exit codes for CI gating.
package cli
