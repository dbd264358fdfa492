// Package output formats scan reports for display or machine consumption.
//
// Four formats are supported:
//   - json     the full report: repository name, scan date and issues plus run metadata
//   - text     human-readable terminal output, colored on a TTY
//   - markdown collapsible sections per severity for issues and PR comments
//   - sarif    SARIF v2.1.0 for code-scanning upload
//
// Use [GetWriter] to obtain a [Writer] for a format string, or [WriteReport]
// to pick the destination and apply snippet redaction in one call.
package output
