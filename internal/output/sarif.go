package output

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/dshills/vulnscan/internal/scan"
)

const informationURI = "https://github.com/dshills/vulnscan"

// SARIFWriter outputs findings in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, report *scan.Report) error {
	doc, err := buildSARIF(report)
	if err != nil {
		return err
	}
	if err := doc.PrettyWrite(w); err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

func buildSARIF(report *scan.Report) (*sarif.Report, error) {
	doc, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("creating SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(report.Tool, informationURI)
	if report.Version != "" {
		version := report.Version
		run.Tool.Driver.SemanticVersion = &version
	}

	seen := make(map[string]bool)
	for _, f := range report.Issues {
		ruleID := RuleID(f.IssueType)
		if !seen[ruleID] {
			seen[ruleID] = true
			run.AddRule(ruleID).
				WithDescription(f.IssueType).
				WithDefaultConfiguration(&sarif.ReportingConfiguration{
					Level: SeverityToLevel(f.Severity),
				})
		}

		region := sarif.NewRegion()
		if f.LineNumber != nil {
			region = region.WithStartLine(*f.LineNumber)
		}
		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.FileName)).
				WithRegion(region),
		)

		result := sarif.NewRuleResult(ruleID).
			WithMessage(sarif.NewTextMessage(f.Description)).
			WithLevel(SeverityToLevel(f.Severity)).
			WithLocations([]*sarif.Location{location})
		result.PropertyBag = *sarif.NewPropertyBag()
		result.Add("severity", string(f.Severity))
		result.Add("codeSnippet", f.CodeSnippet)
		result.Add("suggestedFix", f.SuggestedFix)
		run.AddResult(result)
	}

	doc.AddRun(run)
	return doc, nil
}

// SeverityToLevel maps a finding severity to a SARIF level.
func SeverityToLevel(s scan.Severity) string {
	switch s {
	case scan.SeverityCritical, scan.SeverityHigh:
		return "error"
	case scan.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// RuleID creates a stable rule ID from an issue type.
func RuleID(issueType string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(issueType), "-"), "-")
	if slug == "" {
		slug = "unknown"
	}
	return "vulnscan/" + slug
}
