package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryEntries bounds the in-process layer when Options leaves it unset.
const DefaultMemoryEntries = 512

const entrySuffix = ".json"

// Options configures Open.
type Options struct {
	// Dir holds the entry files. Empty means DefaultDir().
	Dir string
	// TTL is how long an entry stays valid. Zero keeps entries forever.
	TTL           time.Duration
	MemoryEntries int
}

// Entry is one cached model response as stored on disk.
type Entry struct {
	Key       string    `json:"key"`
	Response  string    `json:"response"`
	StoredAt  time.Time `json:"storedAt"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

func (e Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Cache stores model responses by request hash: a memory LRU in front of
// one JSON file per entry. Safe for concurrent use.
type Cache struct {
	dir string
	ttl time.Duration
	mem *lru.Cache[string, Entry]
	now func() time.Time
}

// Open prepares the cache directory and returns a ready Cache.
func Open(opts Options) (*Cache, error) {
	dir := opts.Dir
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	size := opts.MemoryEntries
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	mem, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("creating memory cache: %w", err)
	}
	return &Cache{dir: dir, ttl: opts.TTL, mem: mem, now: time.Now}, nil
}

// Get returns the response stored under key, if present and unexpired.
func (c *Cache) Get(key string) (string, bool) {
	id := HashKey(key)
	now := c.now()
	if e, ok := c.mem.Get(id); ok {
		if !e.expired(now) {
			return e.Response, true
		}
		c.mem.Remove(id)
	}

	e, err := readEntry(c.path(id))
	if err != nil {
		return "", false
	}
	if e.expired(now) {
		_ = os.Remove(c.path(id))
		return "", false
	}
	c.mem.Add(id, e)
	return e.Response, true
}

// Put stores a response under key.
func (c *Cache) Put(key, response string) error {
	id := HashKey(key)
	e := Entry{Key: id, Response: response, StoredAt: c.now()}
	if c.ttl > 0 {
		e.ExpiresAt = e.StoredAt.Add(c.ttl)
	}
	c.mem.Add(id, e)

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	return writeAtomic(c.dir, c.path(id), data)
}

// writeAtomic writes to a temp file in dir and renames it over dst, so
// readers never observe a partial entry.
func writeAtomic(dir, dst string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating cache entry: %w", err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("committing cache entry: %w", err)
	}
	return nil
}

func readEntry(path string) (Entry, error) {
	var e Entry
	data, err := os.ReadFile(path)
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(data, &e)
	return e, err
}

// each calls fn for every entry file in the cache directory. Unreadable
// files are passed with ok=false.
func (c *Cache) each(fn func(path string, size int64, e Entry, ok bool)) error {
	files, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), entrySuffix) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		p := filepath.Join(c.dir, f.Name())
		e, err := readEntry(p)
		fn(p, info.Size(), e, err == nil)
	}
	return nil
}

// Clear removes every entry and reports how many files were deleted.
func (c *Cache) Clear() (int, error) {
	c.mem.Purge()
	removed := 0
	err := c.each(func(path string, _ int64, _ Entry, _ bool) {
		if os.Remove(path) == nil {
			removed++
		}
	})
	return removed, err
}

// Prune removes expired and unreadable entries and reports how many files
// were deleted.
func (c *Cache) Prune() (int, error) {
	now := c.now()
	removed := 0
	err := c.each(func(path string, _ int64, e Entry, ok bool) {
		if ok && !e.expired(now) {
			return
		}
		if os.Remove(path) == nil {
			removed++
		}
	})
	if removed > 0 {
		c.mem.Purge()
	}
	return removed, err
}

// Stats describes the cache contents.
type Stats struct {
	Dir      string `json:"dir"`
	Entries  int    `json:"entries"`
	Bytes    int64  `json:"bytes"`
	Expired  int    `json:"expired"`
	InMemory int    `json:"inMemory"`
}

// Stats summarizes the entries on disk.
func (c *Cache) Stats() (Stats, error) {
	s := Stats{Dir: c.dir, InMemory: c.mem.Len()}
	now := c.now()
	err := c.each(func(_ string, size int64, e Entry, ok bool) {
		s.Entries++
		s.Bytes += size
		if !ok || e.expired(now) {
			s.Expired++
		}
	})
	return s, err
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) path(id string) string {
	return filepath.Join(c.dir, id+entrySuffix)
}

// HashKey returns the hex SHA-256 of key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// BuildKey joins everything that determines a model response into one key.
func BuildKey(provider, model, systemPrompt, prompt string) string {
	return strings.Join([]string{provider, model, HashKey(systemPrompt), HashKey(prompt)}, ":")
}

// DefaultDir returns the per-user cache directory for vulnscan, honoring
// XDG_CACHE_HOME.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "vulnscan"), nil
	}
	if runtime.GOOS == "linux" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locating home directory: %w", err)
		}
		return filepath.Join(home, ".cache", "vulnscan"), nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating cache directory: %w", err)
	}
	return filepath.Join(base, "vulnscan"), nil
}
