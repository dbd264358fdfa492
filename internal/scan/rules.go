package scan

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules represents a rules pack loaded from --rules. YAML and JSON files are
// both accepted.
type Rules struct {
	Focus             []string          `yaml:"focus,omitempty"`
	SeverityOverrides map[string]string `yaml:"severityOverrides,omitempty"`
	Required          []RequiredCheck   `yaml:"required,omitempty"`
	IgnoreTypes       []string          `yaml:"ignoreTypes,omitempty"`
}

// RequiredCheck is a policy check that should always be evaluated.
type RequiredCheck struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
}

// LoadRules loads a rules file from disk. Returns nil Rules and nil error if path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	for issueType, sev := range rules.SeverityOverrides {
		if _, ok := ParseSeverity(sev); !ok {
			return nil, fmt.Errorf("rules file: severity %q for %q is not one of Low, Medium, High, Critical", sev, issueType)
		}
	}
	return &rules, nil
}

// BuildRulesPromptSection returns additional prompt instructions derived from rules.
func BuildRulesPromptSection(rules *Rules) string {
	if rules == nil {
		return ""
	}

	var b strings.Builder

	if len(rules.Focus) > 0 {
		fmt.Fprintf(&b, "\nFocus areas: %s. Prioritize findings in these areas.\n",
			strings.Join(rules.Focus, ", "))
	}

	if len(rules.SeverityOverrides) > 0 {
		b.WriteString("\nSeverity policy:\n")
		types := make([]string, 0, len(rules.SeverityOverrides))
		for t := range rules.SeverityOverrides {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(&b, "- %s findings should be rated as %s severity.\n", t, rules.SeverityOverrides[t])
		}
	}

	if len(rules.Required) > 0 {
		b.WriteString("\nRequired checks (always evaluate these):\n")
		for _, req := range rules.Required {
			fmt.Fprintf(&b, "- [%s] %s\n", req.ID, req.Text)
		}
	}

	return b.String()
}

// Apply enforces severity overrides and drops ignored issue types. Issue
// types match case-insensitively.
func (r *Rules) Apply(findings []Finding) []Finding {
	if r == nil || (len(r.SeverityOverrides) == 0 && len(r.IgnoreTypes) == 0) {
		return findings
	}

	overrides := make(map[string]Severity, len(r.SeverityOverrides))
	for t, sev := range r.SeverityOverrides {
		s, _ := ParseSeverity(sev)
		overrides[strings.ToLower(t)] = s
	}
	ignored := make(map[string]bool, len(r.IgnoreTypes))
	for _, t := range r.IgnoreTypes {
		ignored[strings.ToLower(t)] = true
	}

	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		key := strings.ToLower(f.IssueType)
		if ignored[key] {
			continue
		}
		if s, ok := overrides[key]; ok {
			f.Severity = s
		}
		out = append(out, f)
	}
	return out
}
