package redact

import (
	"regexp"
	"strings"
)

// Placeholder replaces each masked value.
const Placeholder = "[REDACTED]"

// secretPatterns are regex heuristics for common secret types. When a
// pattern has a "val" group only that group is masked, so the key and quotes
// around an assignment stay readable in a report.
var secretPatterns = []*regexp.Regexp{
	// Assignments to api keys, secrets, tokens and passwords
	regexp.MustCompile(`(?i)(?:api[_-]?key|apikey|api[_-]?secret|access[_-]?key|secret[_-]?key|client[_-]?secret)["']?\s*[:=]\s*["']?(?P<val>[A-Za-z0-9/+=_.-]{16,})`),
	regexp.MustCompile(`(?i)(?:secret|token|password|passwd|pwd|credential)s?["']?\s*[:=]\s*["'](?P<val>[^"'\s]{6,})["']`),
	// AWS
	regexp.MustCompile(`(?:AKIA|ASIA)[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)aws[_-]?secret[_-]?access[_-]?key["']?\s*[:=]\s*["']?(?P<val>[A-Za-z0-9/+=]{40})`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+(?P<val>[A-Za-z0-9._~+/-]{20,}=*)`),
	// Credentials embedded in URLs
	regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://[^/\s:@]+:(?P<val>[^@\s/]+)@`),
	// JWTs
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// Private key blocks, whole or just the header when truncated
	regexp.MustCompile(`(?s)-----BEGIN ([A-Z]+ )?PRIVATE KEY-----.*?-----END ([A-Z]+ )?PRIVATE KEY-----`),
	regexp.MustCompile(`-----BEGIN ([A-Z]+ )?PRIVATE KEY-----`),
	// Provider tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	regexp.MustCompile(`github_pat_[A-Za-z0-9_]{22,}`),
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`sk-(?:proj-)?[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`),
}

// Secrets masks detected secrets in text with Placeholder.
func Secrets(text string) string {
	result := text
	for _, pat := range secretPatterns {
		result = maskMatches(pat, result)
	}
	return result
}

func maskMatches(pat *regexp.Regexp, s string) string {
	matches := pat.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s
	}
	val := pat.SubexpIndex("val")

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if val > 0 && m[2*val] >= 0 {
			start, end = m[2*val], m[2*val+1]
		}
		if start < last {
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString(Placeholder)
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}

// Contains reports whether text holds anything Secrets would mask.
func Contains(text string) bool {
	for _, pat := range secretPatterns {
		if pat.MatchString(text) {
			return true
		}
	}
	return false
}
