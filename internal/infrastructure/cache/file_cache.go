package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio"
	"github.com/jellydator/ttlcache/v3"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/ports"
)

// FileCache stores model responses as JSON blobs addressed by request
// fingerprint, with an in-process memo in front of the disk.
type FileCache struct {
	dir        string
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	memo       *ttlcache.Cache[string, domain.CacheEntry]
}

// Option customises a FileCache.
type Option func(*FileCache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *FileCache) { c.now = now }
}

// NewFileCache returns a cache rooted at dir. maxEntries <= 0 disables
// eviction and ttl <= 0 keeps entries forever.
func NewFileCache(dir string, maxEntries int, ttl time.Duration, opts ...Option) *FileCache {
	c := &FileCache{
		dir:        dir,
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	memoOpts := []ttlcache.Option[string, domain.CacheEntry]{
		ttlcache.WithDisableTouchOnHit[string, domain.CacheEntry](),
	}
	if ttl > 0 {
		memoOpts = append(memoOpts, ttlcache.WithTTL[string, domain.CacheEntry](ttl))
	}
	if maxEntries > 0 {
		memoOpts = append(memoOpts, ttlcache.WithCapacity[string, domain.CacheEntry](uint64(maxEntries)))
	}
	c.memo = ttlcache.New[string, domain.CacheEntry](memoOpts...)
	return c
}

// Get retrieves a cache entry. Expired entries are removed and reported as
// misses.
func (c *FileCache) Get(key string) (domain.CacheEntry, bool, error) {
	if !validKey(key) {
		return domain.CacheEntry{}, false, nil
	}
	if item := c.memo.Get(key); item != nil && !c.expired(item.Value()) {
		return item.Value(), true, nil
	}

	path := c.pathFor(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.CacheEntry{}, false, nil
		}
		return domain.CacheEntry{}, false, fmt.Errorf("read cache entry: %w", err)
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	if c.expired(entry) {
		_ = os.Remove(path)
		return domain.CacheEntry{}, false, nil
	}
	c.memo.Set(key, entry, ttlcache.DefaultTTL)
	return entry, true, nil
}

// Put stores a cache entry, replacing any entry with the same key. The file
// is written to a temporary name and renamed into place.
func (c *FileCache) Put(entry domain.CacheEntry) error {
	if !validKey(entry.Key) {
		return fmt.Errorf("invalid cache key %q", entry.Key)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = c.now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.dir, domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(c.pathFor(entry.Key), data, domain.FilePermissions); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	c.memo.Set(entry.Key, entry, ttlcache.DefaultTTL)
	return c.evictIfNeeded()
}

// Dir exposes the cache directory path.
func (c *FileCache) Dir() string {
	return c.dir
}

// Clear removes all cached entries.
func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memo.DeleteAll()
	return os.RemoveAll(c.dir)
}

// Entries lists cache entries, oldest first (best-effort).
func (c *FileCache) Entries() ([]domain.CacheEntry, error) {
	files, err := c.files()
	if err != nil {
		return nil, err
	}
	entries := make([]domain.CacheEntry, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(c.dir, f.name))
		if err != nil {
			continue
		}
		var entry domain.CacheEntry
		if err := json.Unmarshal(data, &entry); err == nil && !c.expired(entry) {
			entries = append(entries, entry)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

// Size reports the bytes used on disk.
func (c *FileCache) Size() (int64, error) {
	files, err := c.files()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, f := range files {
		total += f.size
	}
	return total, nil
}

func (c *FileCache) expired(entry domain.CacheEntry) bool {
	return c.ttl > 0 && c.now().Sub(entry.CreatedAt) > c.ttl
}

func (c *FileCache) pathFor(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// validKey rejects keys that could escape the cache directory.
func validKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, `/\.`)
}

type fileInfo struct {
	name string
	mod  time.Time
	size int64
}

func (c *FileCache) files() ([]fileInfo, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	infos := make([]fileInfo, 0, len(dirEntries))
	for _, f := range dirEntries {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		infos = append(infos, fileInfo{name: f.Name(), mod: info.ModTime(), size: info.Size()})
	}
	return infos, nil
}

func (c *FileCache) evictIfNeeded() error {
	if c.maxEntries <= 0 {
		return nil
	}
	infos, err := c.files()
	if err != nil {
		return err
	}
	if len(infos) <= c.maxEntries {
		return nil
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].mod.Before(infos[j].mod) })
	for len(infos) > c.maxEntries {
		old := infos[0]
		_ = os.Remove(filepath.Join(c.dir, old.name))
		c.memo.Delete(strings.TrimSuffix(old.name, ".json"))
		infos = infos[1:]
	}
	return nil
}

var _ ports.CacheRepository = (*FileCache)(nil)
