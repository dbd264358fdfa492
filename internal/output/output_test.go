package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vulnscan/internal/scan"
)

func intPtr(n int) *int { return &n }

func sampleReport() *scan.Report {
	issues := []scan.Finding{
		{
			ID: 1, FileName: "db/query.py", LineNumber: intPtr(42), IssueType: "SQL Injection",
			Severity: scan.SeverityCritical, Description: "User input is concatenated into SQL",
			CodeSnippet: `cursor.execute("SELECT * FROM u WHERE id=" + uid)`, SuggestedFix: "Use parameterized queries",
		},
		{
			ID: 2, FileName: "config.js", IssueType: "Hardcoded Secret",
			Severity: scan.SeverityMedium, Description: "API key committed to source",
			CodeSnippet: `const password = "hunter2hunter2";`, SuggestedFix: scan.DefaultSuggestedFix,
		},
	}
	return &scan.Report{
		Tool:           "vulnscan",
		Version:        "0.1.0",
		RunID:          "run-1",
		RepositoryName: "demo",
		ScanDate:       "2026-01-02T03:04:05Z",
		Provider:       "anthropic",
		Model:          "claude",
		Issues:         issues,
		Summary:        scan.ComputeSummary(issues),
		Stats:          scan.Stats{Files: 2, Chunks: 3, ChunksFailed: 1},
		Failures:       []scan.ChunkFailure{{File: "big.go", Chunk: 1, Stage: "inference", Error: "timeout"}},
	}
}

func TestGetWriter(t *testing.T) {
	for _, f := range Formats {
		w, err := GetWriter(f)
		require.NoError(t, err, f)
		assert.NotNil(t, w)
	}
	_, err := GetWriter("xml")
	assert.Error(t, err)
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONWriter{}).Write(&buf, sampleReport()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "demo", got["repositoryName"])
	assert.Equal(t, "2026-01-02T03:04:05Z", got["scanDate"])

	issues := got["issues"].([]any)
	require.Len(t, issues, 2)
	first := issues[0].(map[string]any)
	assert.EqualValues(t, 42, first["lineNumber"])
	assert.Equal(t, "Critical", first["severity"])
	assert.Nil(t, issues[1].(map[string]any)["lineNumber"])
}

func TestJSONWriter_EmptyIssuesIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONWriter{}).Write(&buf, &scan.Report{Tool: "vulnscan"}))
	assert.Contains(t, buf.String(), `"issues": []`)
}

func TestSARIFWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&SARIFWriter{}).Write(&buf, sampleReport()))

	var doc struct {
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Name  string `json:"name"`
					Rules []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID    string `json:"ruleId"`
				Level     string `json:"level"`
				Locations []struct {
					PhysicalLocation struct {
						ArtifactLocation struct {
							URI string `json:"uri"`
						} `json:"artifactLocation"`
						Region struct {
							StartLine int `json:"startLine"`
						} `json:"region"`
					} `json:"physicalLocation"`
				} `json:"locations"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "2.1.0", doc.Version)
	require.Len(t, doc.Runs, 1)
	run := doc.Runs[0]
	assert.Equal(t, "vulnscan", run.Tool.Driver.Name)
	assert.Len(t, run.Tool.Driver.Rules, 2)
	require.Len(t, run.Results, 2)

	assert.Equal(t, "vulnscan/sql-injection", run.Results[0].RuleID)
	assert.Equal(t, "error", run.Results[0].Level)
	assert.Equal(t, "db/query.py", run.Results[0].Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, 42, run.Results[0].Locations[0].PhysicalLocation.Region.StartLine)

	assert.Equal(t, "warning", run.Results[1].Level)
	assert.Zero(t, run.Results[1].Locations[0].PhysicalLocation.Region.StartLine)
}

func TestSeverityToLevel(t *testing.T) {
	assert.Equal(t, "error", SeverityToLevel(scan.SeverityCritical))
	assert.Equal(t, "error", SeverityToLevel(scan.SeverityHigh))
	assert.Equal(t, "warning", SeverityToLevel(scan.SeverityMedium))
	assert.Equal(t, "note", SeverityToLevel(scan.SeverityLow))
}

func TestRuleID(t *testing.T) {
	assert.Equal(t, "vulnscan/cross-site-scripting-xss", RuleID("Cross-Site Scripting (XSS)"))
	assert.Equal(t, "vulnscan/unknown", RuleID("!!"))
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).Write(&buf, sampleReport()))
	out := buf.String()

	for _, want := range []string{
		"Repository: demo",
		"Findings: 2 total (1 critical, 0 high, 1 medium, 0 low)",
		"CRITICAL",
		"db/query.py:42",
		"Use parameterized queries",
		"big.go chunk 2: timeout",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, scan.DefaultSuggestedFix)
	assert.Less(t, strings.Index(out, "CRITICAL"), strings.Index(out, "MEDIUM"))
}

func TestTextWriter_NoFindings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).Write(&buf, &scan.Report{}))
	assert.Contains(t, buf.String(), "No vulnerabilities found.")
}

func TestMarkdownWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownWriter{}).Write(&buf, sampleReport()))
	out := buf.String()

	for _, want := range []string{
		"## Vulnerability Scan: demo",
		"| Critical | 1 |",
		"| **Total** | **2** |",
		"### 1. SQL Injection",
		"**`db/query.py:42`**",
		"```python",
		"`big.go` chunk 2 (inference): timeout",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRedacted_CopiesReport(t *testing.T) {
	report := sampleReport()
	masked := Redacted(report)

	assert.Equal(t, `const password = "[REDACTED]";`, masked.Issues[1].CodeSnippet)
	assert.Equal(t, `const password = "hunter2hunter2";`, report.Issues[1].CodeSnippet)
}

func TestWriteReport_ToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteReport(sampleReport(), "json", out, true))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2hunter2")
	assert.Contains(t, string(data), "[REDACTED]")

	assert.Error(t, WriteReport(sampleReport(), "yaml", out, false))
}
