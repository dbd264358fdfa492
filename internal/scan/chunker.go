package scan

import (
	"strings"
	"unicode/utf8"
)

// Default chunking parameters, in bytes.
const (
	DefaultChunkSize    = 12000
	DefaultChunkOverlap = 400
)

// ChunkOptions controls how files are split.
type ChunkOptions struct {
	MaxSize int
	Overlap int
}

type piece struct {
	start   int // byte offset of the overlap in the original contents
	overlap string
	body    string
}

// Split breaks contents into chunks of at most maxChunkSize bytes. Every chunk
// after the first begins with the last overlap bytes of the text already
// emitted, so stripping each chunk's overlap and concatenating the remainder
// reproduces contents exactly. Contents that fit in one chunk are returned
// unchanged as a single chunk.
func Split(contents string, maxChunkSize, overlap int) []string {
	pieces := split(contents, maxChunkSize, overlap)
	out := make([]string, len(pieces))
	for i, p := range pieces {
		out[i] = p.overlap + p.body
	}
	return out
}

// ChunkFile splits a file into Chunks carrying their position and overlap.
func ChunkFile(f SourceFile, opts ChunkOptions) []Chunk {
	pieces := split(f.Contents, opts.MaxSize, opts.Overlap)
	chunks := make([]Chunk, len(pieces))
	line, offset := 1, 0
	for i, p := range pieces {
		line += strings.Count(f.Contents[offset:p.start], "\n")
		offset = p.start
		chunks[i] = Chunk{
			File:      f.Path,
			Index:     i,
			Total:     len(pieces),
			StartLine: line,
			Text:      p.overlap + p.body,
			Overlap:   p.overlap,
		}
	}
	return chunks
}

func split(contents string, maxSize, overlap int) []piece {
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > maxSize/2 {
		overlap = maxSize / 2
	}
	if len(contents) <= maxSize {
		return []piece{{body: contents}}
	}

	var pieces []piece
	start := 0
	for start < len(contents) {
		var prefix string
		if start > 0 {
			prefix = fitPrefix(tail(contents[:start], overlap), maxSize-utf8.UTFMax)
		}
		end := len(contents)
		if limit := start + maxSize - len(prefix); limit < end {
			end = cutPoint(contents, start, limit)
		}
		pieces = append(pieces, piece{
			start:   start - len(prefix),
			overlap: prefix,
			body:    contents[start:end],
		})
		start = end
	}
	return pieces
}

// tail returns the last n bytes of s, extended backwards to a rune boundary.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[i:]
}

// fitPrefix drops whole runes from the front of prefix until it is at most
// budget bytes, leaving every chunk room for at least one rune of new text.
func fitPrefix(prefix string, budget int) string {
	if budget <= 0 {
		return ""
	}
	i := 0
	for len(prefix)-i > budget {
		i++
		for i < len(prefix) && !utf8.RuneStart(prefix[i]) {
			i++
		}
	}
	return prefix[i:]
}

// cutPoint picks where to end the chunk that starts at start, no later than
// limit (exclusive, limit < len(s)). Natural boundaries are preferred as long
// as they fall in the back half of the window.
func cutPoint(s string, start, limit int) int {
	window := s[start:limit]
	floor := len(window) / 2

	after := func(idx, width int) (int, bool) {
		if idx >= 0 && idx+width > floor {
			return start + idx + width, true
		}
		return 0, false
	}

	if end, ok := after(strings.LastIndex(window, "\n\n"), 2); ok {
		return end
	}
	stmt := max(strings.LastIndex(window, "}\n"), strings.LastIndex(window, ";\n"))
	if end, ok := after(stmt, 2); ok {
		return end
	}
	if end, ok := after(strings.LastIndexByte(window, '\n'), 1); ok {
		return end
	}
	if end, ok := after(strings.LastIndexAny(window, " \t"), 1); ok {
		return end
	}

	end := limit
	for end > start && !utf8.RuneStart(s[end]) {
		end--
	}
	if end == start {
		// maxSize smaller than one rune; the chunk holds that rune whole
		end = limit
		for end < len(s) && !utf8.RuneStart(s[end]) {
			end++
		}
	}
	return end
}
