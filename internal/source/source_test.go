package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, contents string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
}

func paths(t *testing.T, root string, opts Options) []string {
	t.Helper()
	files, err := LoadDir(root, opts)
	require.NoError(t, err)
	var out []string
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		path     string
		patterns []string
		want     bool
	}{
		{"vendor/lib.go", []string{"vendor/**"}, true},
		{"main.go", []string{"vendor/**"}, false},
		{"foo.gen.go", []string{"**/*.gen.go"}, true},
		{"pkg/foo.gen.go", []string{"**/*.gen.go"}, true},
		{"web/dist/bundle.js", []string{"**/dist/**"}, true},
		{"main.go", []string{"*.go"}, true},
		{"cmd/app/main.go", []string{"*.go"}, true},
		{"cmd/app/main.go", []string{"cmd/*.go"}, false},
	}
	for _, tt := range tests {
		got := MatchesAny(tt.path, tt.patterns)
		if got != tt.want {
			t.Errorf("MatchesAny(%q, %v) = %v, want %v", tt.path, tt.patterns, got, tt.want)
		}
	}
}

func TestLoadDir_FiltersAndSorts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "z.go", "package z\n")
	writeFile(t, root, "a/b.py", "print(1)\n")
	writeFile(t, root, "vendor/dep.go", "package dep\n")
	writeFile(t, root, ".git/config", "[core]\n")
	writeFile(t, root, "img.png", "\x89PNG\x00\x00data")

	got := paths(t, root, Options{Exclude: []string{"vendor/**"}})
	assert.Equal(t, []string{"a/b.py", "z.go"}, got)

	got = paths(t, root, Options{Include: []string{"*.go"}})
	assert.Equal(t, []string{"vendor/dep.go", "z.go"}, got)
}

func TestLoadDir_SkipsOversized(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.txt", "ok")
	writeFile(t, root, "big.txt", "0123456789")

	got := paths(t, root, Options{MaxFileBytes: 5})
	assert.Equal(t, []string{"small.txt"}, got)
}

func TestLoadDir_Errors(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "missing"), Options{})
	assert.Error(t, err)

	_, err = LoadDir(t.TempDir(), Options{Include: []string{"[unclosed"}})
	assert.Error(t, err)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "files.json")
	writeFile(t, dir, "files.json", `[
		{"id": 1, "path": "a.js", "contents": "eval(x)"},
		{"id": "2", "path": "b.py", "contents": ""}
	]`)

	files, err := LoadJSON(p)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.js", files[0].Path)
	assert.Equal(t, "eval(x)", files[0].Contents)
	assert.Equal(t, "", files[1].Contents)
}

func TestLoadJSON_Invalid(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "bad.json", `{"path": "a.js"}`)
	_, err := LoadJSON(filepath.Join(dir, "bad.json"))
	assert.Error(t, err)

	writeFile(t, dir, "nopath.json", `[{"contents": "x"}]`)
	_, err = LoadJSON(filepath.Join(dir, "nopath.json"))
	assert.ErrorContains(t, err, "missing path")

	writeFile(t, dir, "nocontents.json", `[{"path": "a.js"}]`)
	_, err = LoadJSON(filepath.Join(dir, "nocontents.json"))
	assert.ErrorContains(t, err, "missing contents")
}

func TestLoad_Dispatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.go", "package app\n")
	writeFile(t, root, "list.json", `[{"path": "x.go", "contents": "package x"}]`)

	files, err := Load(filepath.Join(root, "src"), Options{})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "app.go", files[0].Path)

	files, err = Load(filepath.Join(root, "list.json"), Options{})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "x.go", files[0].Path)

	_, err = Load(filepath.Join(root, "nope"), Options{})
	assert.ErrorContains(t, err, "does not exist")
}

func TestRepoName(t *testing.T) {
	root := filepath.Join(t.TempDir(), "my-service")
	require.NoError(t, os.MkdirAll(root, 0o755))
	assert.Equal(t, "my-service", RepoName(root))

	writeFile(t, root, "files.json", "[]")
	assert.Equal(t, "my-service", RepoName(filepath.Join(root, "files.json")))
}
