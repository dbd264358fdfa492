package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := Open(Options{Dir: t.TempDir(), TTL: ttl})
	require.NoError(t, err)
	return c
}

func TestCache_RoundTrip(t *testing.T) {
	c := openTemp(t, time.Hour)

	_, ok := c.Get("k")
	assert.False(t, ok, "empty cache should miss")

	require.NoError(t, c.Put("k", `[{"issueType":"XSS"}]`))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, `[{"issueType":"XSS"}]`, got)
}

func TestCache_ReadsDiskFromFreshInstance(t *testing.T) {
	dir := t.TempDir()
	first, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, first.Put("k", "v"))

	second, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	got, ok := second.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
	assert.Equal(t, 1, second.mem.Len(), "disk hit should populate the memory layer")
}

func TestCache_Expiry(t *testing.T) {
	c := openTemp(t, time.Minute)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	require.NoError(t, c.Put("k", "v"))

	c.now = func() time.Time { return base.Add(30 * time.Second) }
	_, ok := c.Get("k")
	assert.True(t, ok, "entry inside TTL should hit")

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok = c.Get("k")
	assert.False(t, ok, "memory layer must respect expiry")

	_, err := os.Stat(c.path(HashKey("k")))
	assert.True(t, os.IsNotExist(err), "expired entry should be removed from disk")
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	c := openTemp(t, 0)
	require.NoError(t, c.Put("k", "v"))
	c.now = func() time.Time { return time.Now().Add(24 * 365 * time.Hour) }
	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestCache_ClearAndPrune(t *testing.T) {
	c := openTemp(t, time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }
	require.NoError(t, c.Put("old", "1"))
	c.now = func() time.Time { return base.Add(50 * time.Second) }
	require.NoError(t, c.Put("new", "2"))
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), "junk.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), "notes.txt"), []byte("keep"), 0o644))

	c.now = func() time.Time { return base.Add(90 * time.Second) }
	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, 2, stats.Expired)
	assert.Positive(t, stats.Bytes)

	n, err := c.Prune()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, ok := c.Get("new")
	assert.True(t, ok)

	n, err = c.Clear()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok = c.Get("new")
	assert.False(t, ok)

	_, err = os.Stat(filepath.Join(c.Dir(), "notes.txt"))
	assert.NoError(t, err, "non-entry files are left alone")
}

func TestCache_ConcurrentPut(t *testing.T) {
	c := openTemp(t, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.Put("shared", fmt.Sprintf("v%d", i)))
		}(i)
	}
	wg.Wait()

	_, ok := c.Get("shared")
	assert.True(t, ok)
	leftovers, _ := filepath.Glob(filepath.Join(c.Dir(), "*.tmp"))
	assert.Empty(t, leftovers)
}

func TestBuildKey(t *testing.T) {
	a := BuildKey("anthropic", "m", "sys", "prompt")
	assert.Equal(t, a, BuildKey("anthropic", "m", "sys", "prompt"))
	assert.NotEqual(t, a, BuildKey("openai", "m", "sys", "prompt"))
	assert.NotEqual(t, a, BuildKey("anthropic", "m2", "sys", "prompt"))
	assert.NotEqual(t, a, BuildKey("anthropic", "m", "sys", "prompt2"))
	assert.Len(t, HashKey(a), 64)
}

func TestDefaultDir_XDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	dir, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg-cache", "vulnscan"), dir)
}
