package scan

import (
	"encoding/json"
	"testing"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
		ok   bool
	}{
		{"low", SeverityLow, true},
		{"MEDIUM", SeverityMedium, true},
		{" High ", SeverityHigh, true},
		{"Critical", SeverityCritical, true},
		{"moderate", SeverityMedium, true},
		{"", SeverityMedium, false},
		{"urgent", SeverityMedium, false},
	}
	for _, tt := range tests {
		got, ok := ParseSeverity(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSeverity(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestMeetsThreshold(t *testing.T) {
	findings := []Finding{{Severity: SeverityMedium}, {Severity: SeverityLow}}
	tests := map[string]bool{
		"none":     false,
		"":         false,
		"low":      true,
		"medium":   true,
		"high":     false,
		"critical": false,
		"bogus":    false,
	}
	for threshold, want := range tests {
		if got := MeetsThreshold(findings, threshold); got != want {
			t.Errorf("MeetsThreshold(%q) = %v, want %v", threshold, got, want)
		}
	}
}

func TestLineCount(t *testing.T) {
	tests := map[string]int{
		"":       0,
		"a":      1,
		"a\n":    1,
		"a\nb":   2,
		"a\nb\n": 2,
		"\n\n\n": 3,
		"a\r\nb": 2,
	}
	for contents, want := range tests {
		if got := (SourceFile{Contents: contents}).LineCount(); got != want {
			t.Errorf("LineCount(%q) = %d, want %d", contents, got, want)
		}
	}
}

func TestComputeSummary(t *testing.T) {
	s := ComputeSummary([]Finding{
		{Severity: SeverityLow}, {Severity: SeverityHigh}, {Severity: SeverityHigh}, {Severity: SeverityMedium},
	})
	if s.Counts.High != 2 || s.Counts.Low != 1 || s.Counts.Medium != 1 || s.Counts.Critical != 0 {
		t.Errorf("Counts = %+v", s.Counts)
	}
	if s.HighestSeverity != SeverityHigh {
		t.Errorf("HighestSeverity = %q, want High", s.HighestSeverity)
	}
	if ComputeSummary(nil).HighestSeverity != "" {
		t.Error("empty summary should have no highest severity")
	}
}

func TestFinding_JSONShape(t *testing.T) {
	data, err := json.Marshal(Finding{ID: 1, FileName: "a.go", IssueType: "XSS", Severity: SeverityHigh})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	json.Unmarshal(data, &m)
	for _, key := range []string{"id", "fileName", "lineNumber", "issueType", "severity", "description", "codeSnippet", "suggestedFix"} {
		if _, ok := m[key]; !ok {
			t.Errorf("JSON missing key %q: %s", key, data)
		}
	}
	if m["lineNumber"] != nil {
		t.Errorf("unknown lineNumber should serialize as null, got %v", m["lineNumber"])
	}
}
