// Vulnscan is a CLI that scans source files for security vulnerabilities
// with an LLM provider.
//
// Files are split into overlapping chunks, analyzed concurrently under a
// fixed ceiling with retries, and merged into one report whose findings
// carry file names, line numbers and severities. Exit codes are
// deterministic so the tool can gate CI.
//
// Usage:
//
//	vulnscan scan .                          # scan the current directory
//	vulnscan scan --input files.json         # scan a JSON file list
//	vulnscan scan src --format sarif --out results.sarif
//	vulnscan scan . --fail-on high           # exit 1 on High or Critical findings
//	vulnscan models doctor                   # check provider credentials
//
// See https://github.com/dshills/vulnscan for full documentation.
package main
