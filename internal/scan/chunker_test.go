package scan

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSource(lines int) string {
	var b strings.Builder
	for i := 0; i < lines; i++ {
		switch i % 7 {
		case 0:
			fmt.Fprintf(&b, "func handler%d(w http.ResponseWriter, r *http.Request) {\n", i)
		case 3:
			b.WriteString("\n")
		case 6:
			b.WriteString("}\n")
		default:
			fmt.Fprintf(&b, "\tquery := \"SELECT * FROM users WHERE id = \" + r.URL.Query().Get(\"id%d\");\n", i)
		}
	}
	return b.String()
}

func TestSplit_ShortInputSingleChunk(t *testing.T) {
	contents := "package main\n\nfunc main() {}\n"
	chunks := Split(contents, 12000, 400)
	require.Len(t, chunks, 1)
	assert.Equal(t, contents, chunks[0])

	assert.Equal(t, []string{""}, Split("", 100, 10))
}

func TestSplit_ExactlyMaxIsSingleChunk(t *testing.T) {
	contents := strings.Repeat("a", 300)
	assert.Len(t, Split(contents, 300, 50), 1)
	assert.Len(t, Split(contents+"b", 300, 50), 2)
}

func TestChunkFile_Reconstruction(t *testing.T) {
	contents := sampleSource(400)
	const max, overlap = 1000, 120

	chunks := ChunkFile(SourceFile{Path: "h.go", Contents: contents}, ChunkOptions{MaxSize: max, Overlap: overlap})
	require.Greater(t, len(chunks), 3)

	var rebuilt strings.Builder
	for i, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), max, "chunk %d too large", i)
		assert.Equal(t, i, c.Index)
		assert.Equal(t, len(chunks), c.Total)
		require.True(t, strings.HasPrefix(c.Text, c.Overlap))
		if i == 0 {
			assert.Empty(t, c.Overlap)
		} else {
			assert.Len(t, c.Overlap, overlap, "chunk %d overlap", i)
			assert.True(t, strings.HasSuffix(chunks[i-1].Text, c.Overlap), "chunk %d does not start with the tail of chunk %d", i, i-1)
		}
		rebuilt.WriteString(c.Text[len(c.Overlap):])
	}
	assert.Equal(t, contents, rebuilt.String())
}

func TestSplit_ConsecutiveChunksShareOverlap(t *testing.T) {
	contents := sampleSource(300)
	const overlap = 64
	chunks := Split(contents, 700, overlap)
	require.Greater(t, len(chunks), 2)
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		assert.Equal(t, prev[len(prev)-overlap:], chunks[i][:overlap], "chunk %d", i)
	}
}

func TestSplit_PrefersBlankLine(t *testing.T) {
	para := strings.Repeat("x = 1\n", 30)
	contents := para + "\n" + para + "\n" + para
	chunks := ChunkFile(SourceFile{Path: "p.py", Contents: contents}, ChunkOptions{MaxSize: 400, Overlap: 0})
	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(chunks[0].Text, "\n\n"), "first chunk = %q", chunks[0].Text[len(chunks[0].Text)-20:])
}

func TestSplit_NeverCutsRunes(t *testing.T) {
	contents := strings.Repeat("日本語のテキスト🔒", 200)
	chunks := ChunkFile(SourceFile{Path: "u.txt", Contents: contents}, ChunkOptions{MaxSize: 64, Overlap: 7})
	require.Greater(t, len(chunks), 1)

	var rebuilt strings.Builder
	for i, c := range chunks {
		assert.True(t, utf8.ValidString(c.Text), "chunk %d is not valid UTF-8", i)
		assert.True(t, utf8.ValidString(c.Overlap), "overlap %d is not valid UTF-8", i)
		assert.LessOrEqual(t, len(c.Text), 64)
		rebuilt.WriteString(c.Text[len(c.Overlap):])
	}
	assert.Equal(t, contents, rebuilt.String())
}

func TestSplit_MultiByteRunesNearOverlapLimit(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		maxSize  int
		overlap  int
	}{
		{"emoji overlap one below size", strings.Repeat("😀", 200), 256, 255},
		{"emoji tiny window", strings.Repeat("😀", 20), 6, 5},
		{"cjk size of one rune plus one", strings.Repeat("世", 20), 4, 3},
		{"two byte runes", strings.Repeat("é", 50), 5, 4},
		{"mixed widths", strings.Repeat("a😀世é", 40), 8, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done := make(chan []Chunk, 1)
			go func() {
				done <- ChunkFile(SourceFile{Contents: tt.contents}, ChunkOptions{MaxSize: tt.maxSize, Overlap: tt.overlap})
			}()
			var chunks []Chunk
			select {
			case chunks = <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("ChunkFile did not return")
			}

			require.Greater(t, len(chunks), 1)
			var rebuilt strings.Builder
			for i, c := range chunks {
				assert.LessOrEqual(t, len(c.Text), tt.maxSize, "chunk %d", i)
				assert.True(t, utf8.ValidString(c.Text), "chunk %d is not valid UTF-8", i)
				assert.True(t, strings.HasPrefix(c.Text, c.Overlap))
				rebuilt.WriteString(c.Text[len(c.Overlap):])
			}
			assert.Equal(t, tt.contents, rebuilt.String())
		})
	}
}

func TestSplit_OverlapClamped(t *testing.T) {
	contents := sampleSource(100)
	chunks := Split(contents, 300, 5000)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 300)
	}
}

func TestSplit_NoSeparators(t *testing.T) {
	contents := strings.Repeat("A", 1000)
	chunks := ChunkFile(SourceFile{Contents: contents}, ChunkOptions{MaxSize: 256, Overlap: 16})
	var rebuilt strings.Builder
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 256)
		rebuilt.WriteString(c.Text[len(c.Overlap):])
	}
	assert.Equal(t, contents, rebuilt.String())
}

func TestChunkFile_StartLine(t *testing.T) {
	contents := sampleSource(200)
	chunks := ChunkFile(SourceFile{Path: "h.go", Contents: contents}, ChunkOptions{MaxSize: 600, Overlap: 50})
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, 1, chunks[0].StartLine)

	offset := 0
	for i, c := range chunks {
		textStart := offset - len(c.Overlap)
		want := 1 + strings.Count(contents[:textStart], "\n")
		assert.Equal(t, want, c.StartLine, "chunk %d", i)
		offset += len(c.Text) - len(c.Overlap)
	}
}

func TestSplit_DefaultSize(t *testing.T) {
	contents := strings.Repeat("line of text\n", 2000)
	chunks := Split(contents, 0, 0)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), DefaultChunkSize)
	}
	assert.Equal(t, contents, strings.Join(chunks, ""))
}
