package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/vulnscan/internal/redact"
	"github.com/dshills/vulnscan/internal/scan"
)

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *scan.Report) error
}

// Formats lists the accepted --format values.
var Formats = []string{"json", "text", "markdown", "sarif"}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to outPath, or stdout when outPath is empty.
// When redactSnippets is set, secrets in code snippets are masked in the
// written copy; report itself is left untouched.
func WriteReport(report *scan.Report, format, outPath string, redactSnippets bool) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}
	if redactSnippets {
		report = Redacted(report)
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, report)
}

// Redacted returns a copy of report with secrets masked in every snippet.
func Redacted(report *scan.Report) *scan.Report {
	out := *report
	out.Issues = make([]scan.Finding, len(report.Issues))
	for i, f := range report.Issues {
		f.CodeSnippet = redact.Secrets(f.CodeSnippet)
		out.Issues[i] = f
	}
	return &out
}
