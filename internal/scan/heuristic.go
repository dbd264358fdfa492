package scan

import (
	"regexp"
	"strconv"
	"strings"
)

// Labelled fields the heuristic extractor understands, keyed by normalized
// label.
const (
	fieldLine = "line"
	fieldType = "type"
	fieldSev  = "severity"
	fieldDesc = "description"
	fieldCode = "code"
	fieldFix  = "fix"
)

var (
	// "**Severity:** High", "- Line number: 12", "3. Fix: use params"
	fieldRe = regexp.MustCompile(`(?i)^[\s>*#•-]*(?:\d+[.)]\s*)?\**\s*` +
		`(line numbers?|lines?|issue type|vulnerability type|type|severity|description|` +
		`code snippet|vulnerable code|code|suggested fix|fix|suggestion|recommendation|remediation)` +
		`\s*\**\s*[:：]\s*\**\s*(.*?)\s*\**\s*$`)

	// "Issue 1:", "### Vulnerability #2 - SQL Injection", "**Finding 3**"
	headerRe = regexp.MustCompile(`(?i)^[\s>*#•-]*(?:\d+[.)]\s*)?\**\s*(?:issue|vulnerability|finding)\b(.*)$`)

	backtickRe = regexp.MustCompile("`([^`]+)`")
	titleTrim  = regexp.MustCompile(`^[\s#*:.)\-–—\d]*`)
)

var labelKinds = map[string]string{
	"line": fieldLine, "lines": fieldLine, "line number": fieldLine, "line numbers": fieldLine,
	"type": fieldType, "issue type": fieldType, "vulnerability type": fieldType,
	"severity":    fieldSev,
	"description": fieldDesc,
	"code":        fieldCode, "code snippet": fieldCode, "vulnerable code": fieldCode,
	"fix": fieldFix, "suggested fix": fieldFix, "suggestion": fieldFix,
	"recommendation": fieldFix, "remediation": fieldFix,
}

type heuristicBlock struct {
	title  string
	fields map[string]string
	last   string
}

func (b *heuristicBlock) append(kind, text string) {
	if b.fields[kind] == "" {
		b.fields[kind] = text
	} else {
		b.fields[kind] += "\n" + text
	}
}

// parseHeuristic extracts findings from free text laid out as blocks that
// start with an Issue/Vulnerability heading and contain labelled fields.
// A block becomes a finding only if it has at least one labelled field and a
// type (or heading title) or a description.
// It never panics; unusable text yields no findings.
func parseHeuristic(text, filePath string) (findings []Finding) {
	defer func() {
		if r := recover(); r != nil {
			findings = nil
		}
	}()

	var cur *heuristicBlock
	flush := func() {
		if cur == nil {
			return
		}
		if f, ok := cur.finding(filePath); ok {
			findings = append(findings, f)
		}
		cur = nil
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if kind, value, ok := matchField(line); ok {
			if cur == nil {
				continue
			}
			cur.last = kind
			if kind == fieldCode {
				code, consumed := readCode(value, lines[i+1:])
				i += consumed
				cur.fields[fieldCode] = code
				cur.last = ""
				continue
			}
			if value != "" {
				cur.append(kind, value)
			}
			continue
		}

		if m := headerRe.FindStringSubmatch(line); m != nil {
			flush()
			cur = &heuristicBlock{
				title:  strings.TrimSpace(strings.Trim(titleTrim.ReplaceAllString(m[1], ""), "*")),
				fields: map[string]string{},
			}
			continue
		}

		if cur == nil {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			cur.last = ""
			continue
		}
		if cur.last == fieldDesc || cur.last == fieldFix {
			cur.append(cur.last, trimmed)
		}
	}
	flush()
	return findings
}

func matchField(line string) (kind, value string, ok bool) {
	m := fieldRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	label := strings.Join(strings.Fields(strings.ToLower(m[1])), " ")
	kind, ok = labelKinds[label]
	return kind, m[2], ok
}

// readCode returns the code for a Code field whose inline value is value,
// reading a fenced block from rest when the value is empty or opens a fence.
// It also returns how many lines of rest were consumed.
func readCode(value string, rest []string) (string, int) {
	value = strings.TrimSpace(value)

	if strings.HasPrefix(value, "```") {
		inner := strings.TrimPrefix(value, "```")
		if idx := strings.Index(inner, "```"); idx >= 0 {
			return strings.TrimSpace(inner[:idx]), 0
		}
		code, n := readFence(rest)
		return code, n
	}
	if value != "" {
		if m := backtickRe.FindStringSubmatch(value); m != nil {
			return strings.TrimSpace(m[1]), 0
		}
		return value, 0
	}

	// Value on following lines: skip blanks, then expect a fence.
	for j, l := range rest {
		t := strings.TrimSpace(l)
		if t == "" {
			continue
		}
		if strings.HasPrefix(t, "```") {
			code, n := readFence(rest[j+1:])
			return code, j + 1 + n
		}
		if _, _, isField := matchField(l); isField || headerRe.MatchString(l) {
			return "", j
		}
		if m := backtickRe.FindStringSubmatch(t); m != nil {
			return strings.TrimSpace(m[1]), j + 1
		}
		return t, j + 1
	}
	return "", len(rest)
}

// readFence collects lines up to a closing ``` fence. The returned count
// includes the closing fence line.
func readFence(lines []string) (string, int) {
	var body []string
	for i, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			return strings.Join(body, "\n"), i + 1
		}
		body = append(body, l)
	}
	return strings.Join(body, "\n"), len(lines)
}

func (b *heuristicBlock) finding(filePath string) (Finding, bool) {
	if len(b.fields) == 0 {
		return Finding{}, false
	}
	issueType := b.fields[fieldType]
	if issueType == "" {
		issueType = b.title
	}
	if issueType == "" && b.fields[fieldDesc] == "" {
		return Finding{}, false
	}
	f := newFinding(filePath,
		issueType,
		severityWord(b.fields[fieldSev]),
		b.fields[fieldDesc],
		b.fields[fieldCode],
		b.fields[fieldFix],
	)
	if m := firstInt.FindString(b.fields[fieldLine]); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n >= 1 {
			f.LineNumber = &n
		}
	}
	return f, true
}

// severityWord finds the first recognised severity word in s, so values like
// "High (CVSS 8.1)" resolve to High.
func severityWord(s string) string {
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	}) {
		if sev, ok := ParseSeverity(w); ok {
			return string(sev)
		}
	}
	return ""
}
