package scan

import "strings"

// Locate finds the 1-based line at which snippet starts in contents. Lines
// are compared after trimming whitespace, and a snippet line matches when it
// is a substring of the file line, so partial or re-indented snippets still
// resolve. Blank lines at either end of the snippet are ignored. The first
// match wins.
func Locate(contents, snippet string) (int, bool) {
	want := snippetLines(snippet)
	if len(want) == 0 {
		return 0, false
	}

	lines := strings.Split(contents, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	for i := 0; i+len(want) <= len(lines); i++ {
		match := true
		for j, w := range want {
			if !strings.Contains(lines[i+j], w) {
				match = false
				break
			}
		}
		if match {
			return i + 1, true
		}
	}
	return 0, false
}

func snippetLines(snippet string) []string {
	if snippet == DefaultCodeSnippet {
		return nil
	}
	raw := strings.Split(snippet, "\n")
	out := make([]string, len(raw))
	for i, l := range raw {
		out[i] = strings.TrimSpace(l)
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

// placeLine sets f.LineNumber from the located snippet. When the snippet is
// not found the model's line is kept only if it lies inside the file.
func placeLine(f *Finding, file SourceFile) {
	if n, ok := Locate(file.Contents, f.CodeSnippet); ok {
		f.LineNumber = &n
		return
	}
	if f.LineNumber != nil && (*f.LineNumber < 1 || *f.LineNumber > file.LineCount()) {
		f.LineNumber = nil
	}
}
