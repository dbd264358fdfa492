package scan

import (
	"strings"
	"time"
)

// Severity represents the severity of a finding.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Placeholders used when the model omits a field.
const (
	DefaultIssueType    = "Unknown"
	DefaultDescription  = "No description provided"
	DefaultCodeSnippet  = "No code snippet provided"
	DefaultSuggestedFix = "No fix suggested"
)

// ParseSeverity converts a string to a Severity, case-insensitively.
// The second result is false when s is not a recognised level.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, true
	case "medium", "moderate":
		return SeverityMedium, true
	case "high":
		return SeverityHigh, true
	case "critical":
		return SeverityCritical, true
	default:
		return SeverityMedium, false
	}
}

// SeverityRank returns a numeric rank for comparison (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// MeetsThreshold checks if any finding meets or exceeds the given threshold.
// A threshold of "none" or "" never matches.
func MeetsThreshold(findings []Finding, threshold string) bool {
	if threshold == "" || strings.EqualFold(threshold, "none") {
		return false
	}
	min, ok := ParseSeverity(threshold)
	if !ok {
		return false
	}
	for _, f := range findings {
		if SeverityRank(f.Severity) >= SeverityRank(min) {
			return true
		}
	}
	return false
}

// SourceFile is one file to be scanned.
type SourceFile struct {
	Path     string `json:"path"`
	Contents string `json:"contents"`
}

// LineCount returns the number of lines in the file. A trailing newline
// does not start a new line.
func (f SourceFile) LineCount() int {
	if f.Contents == "" {
		return 0
	}
	n := strings.Count(f.Contents, "\n")
	if !strings.HasSuffix(f.Contents, "\n") {
		n++
	}
	return n
}

// Chunk is a contiguous piece of a file. Text begins with Overlap, the tail
// of the previous chunk; Overlap is empty for the first chunk.
type Chunk struct {
	File      string
	Index     int
	Total     int
	StartLine int
	Text      string
	Overlap   string
}

// Finding is a single vulnerability reported for a file.
type Finding struct {
	ID           int      `json:"id"`
	FileName     string   `json:"fileName"`
	LineNumber   *int     `json:"lineNumber"`
	IssueType    string   `json:"issueType"`
	Severity     Severity `json:"severity"`
	Description  string   `json:"description"`
	CodeSnippet  string   `json:"codeSnippet"`
	SuggestedFix string   `json:"suggestedFix"`
}

// Line returns the line number or 0 when unknown.
func (f Finding) Line() int {
	if f.LineNumber == nil {
		return 0
	}
	return *f.LineNumber
}

// Summary holds aggregate counts.
type Summary struct {
	Counts          SeverityCounts `json:"counts"`
	HighestSeverity Severity       `json:"highestSeverity,omitempty"`
}

// SeverityCounts tracks finding counts by severity.
type SeverityCounts struct {
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

// Stats records how the run went, including failures that were absorbed.
type Stats struct {
	Files          int `json:"files"`
	SkippedFiles   int `json:"skippedFiles"`
	Chunks         int `json:"chunks"`
	ChunksFailed   int `json:"chunksFailed"`
	FallbackParses int `json:"fallbackParses"`
	UnparsedChunks int `json:"unparsedChunks"`
	CacheHits      int `json:"cacheHits"`
	Attempts       int `json:"attempts"`
}

// ChunkFailure records a chunk that produced no findings because a stage
// failed.
type ChunkFailure struct {
	File  string `json:"file"`
	Chunk int    `json:"chunk"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// Timing holds performance measurements.
type Timing struct {
	LLMMs   int64 `json:"llmMs"`
	TotalMs int64 `json:"totalMs"`
}

// Report is the complete output of a scan.
type Report struct {
	Tool           string         `json:"tool"`
	Version        string         `json:"version"`
	RunID          string         `json:"runId"`
	RepositoryName string         `json:"repositoryName,omitempty"`
	ScanDate       string         `json:"scanDate,omitempty"`
	Provider       string         `json:"provider,omitempty"`
	Model          string         `json:"model,omitempty"`
	Issues         []Finding      `json:"issues"`
	Summary        Summary        `json:"summary"`
	Stats          Stats          `json:"stats"`
	Failures       []ChunkFailure `json:"failures,omitempty"`
	Timing         Timing         `json:"timing"`
}

// Metadata is caller-supplied run information copied into the report.
type Metadata struct {
	RepositoryName string
	ScanDate       time.Time
}

// ComputeSummary builds a Summary from findings.
func ComputeSummary(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity {
		case SeverityLow:
			s.Counts.Low++
		case SeverityMedium:
			s.Counts.Medium++
		case SeverityHigh:
			s.Counts.High++
		case SeverityCritical:
			s.Counts.Critical++
		}
		if SeverityRank(f.Severity) > SeverityRank(s.HighestSeverity) {
			s.HighestSeverity = f.Severity
		}
	}
	return s
}
