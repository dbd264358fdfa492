// Package config loads and merges vulnscan configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (VULNSCAN_PROVIDER, VULNSCAN_CONCURRENCY,
//     VULNSCAN_RETRY_MAX_ATTEMPTS, ...), including any loaded from a .env file
//  3. Config file ($XDG_CONFIG_HOME/vulnscan/config.yaml, or VULNSCAN_CONFIG)
//  4. Built-in defaults
//
// The config file is YAML; JSON is accepted since it is valid YAML. Use [Load]
// to obtain a validated [Config], [Save] to write one, and [SetField] to
// update a single key.
package config
