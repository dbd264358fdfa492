// Package logging builds the hclog loggers used across vulnscan. Logs go to
// stderr so stdout carries only the report.
package logging
