package scan

import (
	"fmt"
	"path/filepath"
	"strings"
)

const systemPrompt = `You are a security expert analyzing code for vulnerabilities.

Examine the code you are given and report every security vulnerability you find. Consider at least:
1. Injection flaws: SQL injection, command injection, cross-site scripting (XSS), template injection, path traversal.
2. Authentication and access-control flaws: missing or broken authentication, privilege escalation, insecure session handling, missing authorization checks.
3. Hardcoded secrets: API keys, passwords, tokens, private keys or credentials embedded in source.
4. Unsafe deployment or CI configuration: secrets in pipeline definitions, overly broad permissions, untrusted inputs in build scripts, disabled TLS verification.
5. Malware-like behaviour: data exfiltration, obfuscated or encoded payloads, backdoors, unexpected network calls or process execution.

Report only real issues in the code shown. Use the line numbers of the file, not of the excerpt.
Rate severity as "Low", "Medium", "High" or "Critical".

You MUST respond with ONLY a JSON array. No markdown, no explanation, no preamble.

Each element must have this exact structure:
{
  "lineNumber": 1,
  "issueType": "Short vulnerability type, e.g. SQL Injection",
  "severity": "Low|Medium|High|Critical",
  "description": "What is wrong and how it can be exploited",
  "codeSnippet": "The exact vulnerable line(s) copied verbatim from the code",
  "suggestedFix": "How to fix it, with code if helpful"
}

If there are no vulnerabilities, respond with an empty array: []`

// SystemPrompt returns the system prompt for the LLM.
func SystemPrompt() string {
	return systemPrompt
}

// BuildPrompt constructs the user prompt for one chunk of a file.
func BuildPrompt(c Chunk, rules *Rules) string {
	var b strings.Builder

	b.WriteString("Analyze the following code for security vulnerabilities.\n\n")
	fmt.Fprintf(&b, "File: %s\n", c.File)
	fmt.Fprintf(&b, "Chunk %d of %d (starts at line %d of the file).\n", c.Index+1, max(c.Total, 1), max(c.StartLine, 1))
	if c.Overlap != "" {
		b.WriteString("The beginning of this chunk repeats the end of the previous chunk for context; do not report issues that lie only in that repeated part.\n")
	}
	if lang := detectLanguage(c.File); lang != "" {
		fmt.Fprintf(&b, "Language: %s\n", lang)
	}

	if rulesSection := BuildRulesPromptSection(rules); rulesSection != "" {
		b.WriteString(rulesSection)
	}

	b.WriteString("\n--- BEGIN CODE ---\n")
	b.WriteString(c.Text)
	b.WriteString("\n--- END CODE ---\n")

	return b.String()
}

var langMap = map[string]string{
	".go":         "Go",
	".py":         "Python",
	".js":         "JavaScript",
	".mjs":        "JavaScript",
	".cjs":        "JavaScript",
	".ts":         "TypeScript",
	".tsx":        "TypeScript/React",
	".jsx":        "JavaScript/React",
	".rs":         "Rust",
	".java":       "Java",
	".rb":         "Ruby",
	".cpp":        "C++",
	".c":          "C",
	".h":          "C/C++",
	".cs":         "C#",
	".php":        "PHP",
	".swift":      "Swift",
	".kt":         "Kotlin",
	".sql":        "SQL",
	".sh":         "Shell",
	".bash":       "Shell",
	".ps1":        "PowerShell",
	".yaml":       "YAML",
	".yml":        "YAML",
	".json":       "JSON",
	".tf":         "Terraform",
	".html":       "HTML",
	".xml":        "XML",
	".dockerfile": "Dockerfile",
}

func detectLanguage(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if base == "dockerfile" {
		return "Dockerfile"
	}
	if base == "makefile" {
		return "Makefile"
	}
	return langMap[filepath.Ext(base)]
}
