package output

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/dshills/vulnscan/internal/scan"
)

// MarkdownWriter outputs a markdown report suitable for an issue or PR comment.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *scan.Report) error {
	ew := &errWriter{w: w}
	c := report.Summary.Counts

	title := "Vulnerability Scan"
	if report.RepositoryName != "" {
		title += ": " + report.RepositoryName
	}
	ew.printf("## %s\n\n", title)
	if report.ScanDate != "" {
		ew.printf("Scanned %s", report.ScanDate)
		if report.Provider != "" {
			ew.printf(" with `%s/%s`", report.Provider, report.Model)
		}
		ew.printf("\n\n")
	}

	ew.printf("| Severity | Count |\n")
	ew.printf("|----------|-------|\n")
	ew.printf("| Critical | %d |\n", c.Critical)
	ew.printf("| High | %d |\n", c.High)
	ew.printf("| Medium | %d |\n", c.Medium)
	ew.printf("| Low | %d |\n", c.Low)
	ew.printf("| **Total** | **%d** |\n\n", len(report.Issues))

	if len(report.Issues) == 0 {
		ew.println("No vulnerabilities found. :white_check_mark:")
	}

	grouped := groupBySeverity(report.Issues)
	for _, sev := range severityOrder {
		findings := grouped[sev]
		if len(findings) == 0 {
			continue
		}
		ew.printf("<details>\n<summary>%s %s (%d)</summary>\n\n", mdSeverityIcon(sev), strings.ToUpper(string(sev)), len(findings))

		for _, f := range findings {
			ew.printf("### %d. %s\n\n", f.ID, f.IssueType)
			ew.printf("**`%s`**\n\n", location(f))
			ew.printf("%s\n\n", f.Description)
			if f.CodeSnippet != "" && f.CodeSnippet != scan.DefaultCodeSnippet {
				ew.printf("```%s\n%s\n```\n\n", fenceLang(f.FileName), strings.TrimRight(f.CodeSnippet, "\n"))
			}
			if f.SuggestedFix != "" && f.SuggestedFix != scan.DefaultSuggestedFix {
				ew.printf("**Suggested fix:**\n\n")
				ew.printf("> %s\n\n", strings.ReplaceAll(f.SuggestedFix, "\n", "\n> "))
			}
			ew.printf("---\n\n")
		}
		ew.printf("</details>\n\n")
	}

	if len(report.Failures) > 0 {
		ew.printf("**%d chunk(s) could not be analyzed:**\n\n", len(report.Failures))
		for _, fl := range report.Failures {
			ew.printf("- `%s` chunk %d (%s): %s\n", fl.File, fl.Chunk+1, fl.Stage, fl.Error)
		}
		ew.printf("\n")
	}

	ew.printf("*Scanned %d files in %dms (LLM: %dms)*\n", report.Stats.Files, report.Timing.TotalMs, report.Timing.LLMMs)
	return ew.err
}

func mdSeverityIcon(s scan.Severity) string {
	switch s {
	case scan.SeverityCritical:
		return ":rotating_light:"
	case scan.SeverityHigh:
		return ":red_circle:"
	case scan.SeverityMedium:
		return ":orange_circle:"
	case scan.SeverityLow:
		return ":yellow_circle:"
	default:
		return ":white_circle:"
	}
}

var fenceLangs = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "tsx",
	".jsx":  "jsx",
	".rs":   "rust",
	".java": "java",
	".rb":   "ruby",
	".php":  "php",
	".sh":   "bash",
	".sql":  "sql",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".tf":   "hcl",
}

func fenceLang(path string) string {
	return fenceLangs[strings.ToLower(filepath.Ext(path))]
}
