package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/dshills/vulnscan/internal/scan"
)

// DefaultMaxFileBytes is the per-file size limit when Options leaves it unset.
const DefaultMaxFileBytes = 1 << 20

// binarySniffBytes is how much of a file is inspected for NUL bytes.
const binarySniffBytes = 8 << 10

// Options controls which files LoadDir returns.
type Options struct {
	Include      []string
	Exclude      []string
	MaxFileBytes int64
	Logger       hclog.Logger
}

// ValidatePatterns reports the first malformed glob in patterns.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return nil
}

// MatchesAny reports whether the slash-separated relative path matches any
// pattern. Patterns without a slash also match the base name, so "*.go"
// selects Go files at any depth.
func MatchesAny(rel string, patterns []string) bool {
	base := path.Base(rel)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if !strings.Contains(p, "/") {
			if ok, _ := doublestar.Match(p, base); ok {
				return true
			}
		}
	}
	return false
}

// LoadDir walks root and returns the text files that pass the include and
// exclude filters, sorted by path. Paths are relative to root and use
// forward slashes.
func LoadDir(root string, opts Options) ([]scan.SourceFile, error) {
	if err := ValidatePatterns(opts.Include); err != nil {
		return nil, err
	}
	if err := ValidatePatterns(opts.Exclude); err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input %s is not a directory", root)
	}

	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	limit := opts.MaxFileBytes
	if limit <= 0 {
		limit = DefaultMaxFileBytes
	}

	var files []scan.SourceFile
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if d.Name() == ".git" || MatchesAny(rel, opts.Exclude) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if len(opts.Include) > 0 && !MatchesAny(rel, opts.Include) {
			return nil
		}
		if MatchesAny(rel, opts.Exclude) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.Size() > limit {
			logger.Debug("skipping oversized file", "path", rel, "bytes", fi.Size())
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			logger.Warn("skipping unreadable file", "path", rel, "error", err)
			return nil
		}
		if isBinary(data) {
			logger.Debug("skipping binary file", "path", rel)
			return nil
		}
		files = append(files, scan.SourceFile{Path: rel, Contents: string(data)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func isBinary(data []byte) bool {
	if len(data) > binarySniffBytes {
		data = data[:binarySniffBytes]
	}
	return bytes.IndexByte(data, 0) >= 0
}

type listEntry struct {
	ID       json.RawMessage `json:"id,omitempty"`
	Path     string          `json:"path"`
	Contents *string         `json:"contents"`
}

// LoadJSON reads a JSON array of {"id", "path", "contents"} objects.
func LoadJSON(p string) ([]scan.SourceFile, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	var entries []listEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing file list %s: %w", p, err)
	}

	files := make([]scan.SourceFile, 0, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Path) == "" {
			return nil, fmt.Errorf("file list entry %d: missing path", i)
		}
		if e.Contents == nil {
			return nil, fmt.Errorf("file list entry %d (%s): missing contents", i, e.Path)
		}
		files = append(files, scan.SourceFile{Path: e.Path, Contents: *e.Contents})
	}
	return files, nil
}

// Load picks LoadDir or LoadJSON depending on whether input is a directory.
func Load(input string, opts Options) ([]scan.SourceFile, error) {
	info, err := os.Stat(input)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("input %s does not exist", input)
		}
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if info.IsDir() {
		return LoadDir(input, opts)
	}
	return LoadJSON(input)
}

// RepoName returns the base name of root's absolute path.
func RepoName(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Base(root)
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}
	return filepath.Base(abs)
}
