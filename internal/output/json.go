package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/vulnscan/internal/scan"
)

// JSONWriter outputs the full report as JSON.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, report *scan.Report) error {
	if report.Issues == nil {
		r := *report
		r.Issues = []scan.Finding{}
		report = &r
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
