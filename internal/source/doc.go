// Package source collects the files handed to the scanner, either by walking
// a local directory or by reading a JSON file list.
package source
