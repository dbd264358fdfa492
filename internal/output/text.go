package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/vulnscan/internal/scan"
)

// TextWriter outputs a human-readable text report. Colors are used only
// when the destination is a terminal.
type TextWriter struct{}

var severityOrder = []scan.Severity{
	scan.SeverityCritical, scan.SeverityHigh, scan.SeverityMedium, scan.SeverityLow,
}

type textStyles struct {
	header lipgloss.Style
	dim    lipgloss.Style
	path   lipgloss.Style
	sev    map[scan.Severity]lipgloss.Style
}

func newTextStyles(w io.Writer) textStyles {
	r := lipgloss.NewRenderer(w)
	return textStyles{
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		dim:    r.NewStyle().Foreground(lipgloss.Color("241")),
		path:   r.NewStyle().Bold(true),
		sev: map[scan.Severity]lipgloss.Style{
			scan.SeverityCritical: r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
			scan.SeverityHigh:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
			scan.SeverityMedium:   r.NewStyle().Foreground(lipgloss.Color("214")),
			scan.SeverityLow:      r.NewStyle().Foreground(lipgloss.Color("69")),
		},
	}
}

func (t *TextWriter) Write(w io.Writer, report *scan.Report) error {
	ew := &errWriter{w: w}
	st := newTextStyles(w)
	rule := st.dim.Render(strings.Repeat("─", 60))

	ew.println(st.header.Render("Vulnerability Scan"))
	if report.RepositoryName != "" {
		ew.printf("Repository: %s\n", report.RepositoryName)
	}
	if report.ScanDate != "" {
		ew.printf("Scanned: %s\n", report.ScanDate)
	}
	if report.Provider != "" {
		ew.printf("Model: %s/%s\n", report.Provider, report.Model)
	}
	ew.println(rule)

	c := report.Summary.Counts
	total := len(report.Issues)
	ew.printf("Findings: %d total", total)
	if total > 0 {
		ew.printf(" (%d critical, %d high, %d medium, %d low)", c.Critical, c.High, c.Medium, c.Low)
	}
	ew.println("")
	ew.println(rule)

	if total == 0 {
		ew.println("\nNo vulnerabilities found.")
	}

	grouped := groupBySeverity(report.Issues)
	for _, sev := range severityOrder {
		findings := grouped[sev]
		if len(findings) == 0 {
			continue
		}
		ew.printf("\n%s\n", st.sev[sev].Render(fmt.Sprintf("%s %s (%d)", severityIcon(sev), strings.ToUpper(string(sev)), len(findings))))

		for _, f := range findings {
			ew.printf("\n  %s  %s\n", st.path.Render(location(f)), f.IssueType)
			for _, line := range wrapText(f.Description, 70) {
				ew.printf("    %s\n", line)
			}
			if f.CodeSnippet != "" && f.CodeSnippet != scan.DefaultCodeSnippet {
				ew.println("  Code:")
				for _, line := range strings.Split(strings.TrimRight(f.CodeSnippet, "\n"), "\n") {
					ew.printf("    %s\n", st.dim.Render(line))
				}
			}
			if f.SuggestedFix != "" && f.SuggestedFix != scan.DefaultSuggestedFix {
				ew.println("  Fix:")
				for _, line := range wrapText(f.SuggestedFix, 70) {
					ew.printf("    %s\n", line)
				}
			}
		}
	}

	ew.printf("\n%s\n", rule)
	s := report.Stats
	ew.printf("%d files, %d chunks (%d failed, %d cached)\n", s.Files, s.Chunks, s.ChunksFailed, s.CacheHits)
	for _, fl := range report.Failures {
		ew.printf("  %s %s chunk %d: %s\n", st.dim.Render(fl.Stage), fl.File, fl.Chunk+1, fl.Error)
	}
	ew.printf("Completed in %dms (LLM: %dms)\n", report.Timing.TotalMs, report.Timing.LLMMs)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

// groupBySeverity keeps the report's ID order within each severity.
func groupBySeverity(findings []scan.Finding) map[scan.Severity][]scan.Finding {
	m := make(map[scan.Severity][]scan.Finding)
	for _, f := range findings {
		m[f.Severity] = append(m[f.Severity], f)
	}
	return m
}

func location(f scan.Finding) string {
	if f.LineNumber == nil {
		return f.FileName
	}
	return fmt.Sprintf("%s:%d", f.FileName, *f.LineNumber)
}

func severityIcon(s scan.Severity) string {
	switch s {
	case scan.SeverityCritical:
		return "[!!!]"
	case scan.SeverityHigh:
		return "[!!]"
	case scan.SeverityMedium:
		return "[!]"
	case scan.SeverityLow:
		return "[-]"
	default:
		return "[?]"
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
