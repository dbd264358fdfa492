package scan

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
)

var errNoJSONArray = errors.New("no JSON array in response")

// Resolution is the outcome of interpreting one model response.
type Resolution struct {
	Findings []Finding
	// Fallback is set whenever strict JSON parsing failed and the heuristic
	// extractor ran, whether or not it recovered any Findings.
	Fallback bool
	// Err is the strict parsing failure, if any. Informational only.
	Err error
}

// Resolver turns raw model text into findings. It never fails: text that
// cannot be interpreted yields zero findings.
type Resolver struct {
	logger hclog.Logger
}

// NewResolver creates a Resolver that logs fallbacks to logger.
func NewResolver(logger hclog.Logger) *Resolver {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Resolver{logger: logger}
}

// Resolve parses raw as a JSON array of findings, falling back to heuristic
// extraction of labelled text blocks when that fails. Line numbers are the
// model's; callers correct them with Locate.
func (r *Resolver) Resolve(raw, filePath string) Resolution {
	findings, err := parseJSONFindings(raw, filePath)
	if err == nil {
		return Resolution{Findings: findings}
	}
	r.logger.Warn("falling back to heuristic extraction", "file", filePath, "error", err)
	return Resolution{
		Findings: parseHeuristic(raw, filePath),
		Fallback: true,
		Err:      err,
	}
}

// rawFinding is a finding as the model sent it. Every field is optional and
// tolerant of the wrong JSON type.
type rawFinding struct {
	LineNumber   flexLine   `json:"lineNumber"`
	Line         flexLine   `json:"line"`
	IssueType    flexString `json:"issueType"`
	Type         flexString `json:"type"`
	Severity     flexString `json:"severity"`
	Description  flexString `json:"description"`
	CodeSnippet  flexString `json:"codeSnippet"`
	Code         flexString `json:"code"`
	SuggestedFix flexString `json:"suggestedFix"`
	Fix          flexString `json:"fix"`
}

func parseJSONFindings(raw, filePath string) ([]Finding, error) {
	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start < 0 || end <= start {
		return nil, errNoJSONArray
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("invalid JSON array: %w", err)
	}

	findings := make([]Finding, 0, len(items))
	for _, item := range items {
		var rf rawFinding
		if string(item) == "null" {
			continue
		}
		if err := json.Unmarshal(item, &rf); err != nil {
			continue
		}
		line := rf.LineNumber
		if !line.ok {
			line = rf.Line
		}
		f := newFinding(filePath,
			first(string(rf.IssueType), string(rf.Type)),
			string(rf.Severity),
			string(rf.Description),
			first(string(rf.CodeSnippet), string(rf.Code)),
			first(string(rf.SuggestedFix), string(rf.Fix)),
		)
		if line.ok {
			n := line.n
			f.LineNumber = &n
		}
		findings = append(findings, f)
	}
	return findings, nil
}

// newFinding fills defaults for every missing field.
func newFinding(filePath, issueType, severity, description, snippet, fix string) Finding {
	sev, _ := ParseSeverity(severity)
	return Finding{
		FileName:     filePath,
		IssueType:    orDefault(issueType, DefaultIssueType),
		Severity:     sev,
		Description:  orDefault(description, DefaultDescription),
		CodeSnippet:  orDefault(snippet, DefaultCodeSnippet),
		SuggestedFix: orDefault(fix, DefaultSuggestedFix),
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}

func first(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// flexString accepts a JSON string, number, bool or null. Other values are
// kept as their JSON text.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*s = ""
	case string:
		*s = flexString(t)
	case float64:
		*s = flexString(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*s = flexString(strconv.FormatBool(t))
	default:
		*s = flexString(b)
	}
	return nil
}

// flexLine accepts a positive number or a string containing one
// ("12", "line 12", "12-14").
type flexLine struct {
	n  int
	ok bool
}

var firstInt = regexp.MustCompile(`\d+`)

func (l *flexLine) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		if t >= 1 {
			l.n, l.ok = int(t), true
		}
	case string:
		if m := firstInt.FindString(t); m != "" {
			if n, err := strconv.Atoi(m); err == nil && n >= 1 {
				l.n, l.ok = n, true
			}
		}
	}
	return nil
}
