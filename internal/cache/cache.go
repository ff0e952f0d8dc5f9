package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	gap "github.com/muesli/go-app-paths"
	"github.com/sahilm/fuzzy"
)

const (
	cacheVersion   = 2
	defaultTTLDays = 30
	appName        = "karaline"
	entrySuffix    = ".bin"
)

var (
	ErrCacheMiss    = errors.New("cache miss")
	ErrCacheExpired = errors.New("cache expired")
	ErrCacheCorrupt = errors.New("cache corrupt")
)

// LyricEntry is one cached lyric lookup plus the user's sync offset for it.
type LyricEntry struct {
	Version      uint8
	TrackName    string
	ArtistName   string
	AlbumName    string
	Duration     float64
	Instrumental bool
	PlainLyrics  string
	SyncedLyrics string
	SyncOffset   float64
	CreatedAt    int64
	ExpiresAt    int64
}

// DiskCache keeps zstd compressed gob entries on disk with a memory layer
// in front. A DiskCache with an empty base path is memory only.
type DiskCache struct {
	basePath string
	ttl      time.Duration
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder

	mu       sync.RWMutex
	memCache map[string]*LyricEntry
}

var (
	globalCache     *DiskCache
	globalCacheOnce sync.Once
)

func GetGlobalCache() *DiskCache {
	globalCacheOnce.Do(func() {
		dir, err := DefaultDir()
		if err == nil {
			globalCache, err = NewDiskCache(dir)
		}
		if err != nil {
			globalCache, _ = NewDiskCache("")
		}
	})
	return globalCache
}

// DefaultDir is the per-user lyrics cache directory.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, "lyrics"), nil
	}
	dir, err := gap.NewScope(gap.User, appName).CacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve cache dir: %w", err)
	}
	return filepath.Join(dir, "lyrics"), nil
}

func NewDiskCache(basePath string) (*DiskCache, error) {
	if basePath != "" {
		if err := os.MkdirAll(basePath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &DiskCache{
		basePath: basePath,
		ttl:      defaultTTLDays * 24 * time.Hour,
		encoder:  encoder,
		decoder:  decoder,
		memCache: make(map[string]*LyricEntry),
	}, nil
}

func (c *DiskCache) Dir() string { return c.basePath }

func generateKey(artist, title string) string {
	normalized := strings.ToLower(strings.TrimSpace(artist)) + "|" + strings.ToLower(strings.TrimSpace(title))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:12])
}

func (c *DiskCache) filePath(key string) string {
	return filepath.Join(c.basePath, key+entrySuffix)
}

func (c *DiskCache) Get(artist, title string) (*LyricEntry, error) {
	if artist == "" || title == "" {
		return nil, ErrCacheMiss
	}

	key := generateKey(artist, title)
	now := time.Now().Unix()

	c.mu.RLock()
	entry, ok := c.memCache[key]
	c.mu.RUnlock()

	if ok {
		if entry.ExpiresAt > now {
			return entry, nil
		}
		c.mu.Lock()
		delete(c.memCache, key)
		c.mu.Unlock()
	}

	if c.basePath == "" {
		return nil, ErrCacheMiss
	}

	path := c.filePath(key)
	entry, err := c.readFromDisk(path)
	if err != nil {
		return nil, err
	}
	if entry.ExpiresAt <= now {
		_ = os.Remove(path)
		return nil, ErrCacheExpired
	}

	c.mu.Lock()
	c.memCache[key] = entry
	c.mu.Unlock()

	return entry, nil
}

func (c *DiskCache) Set(artist, title string, entry *LyricEntry) error {
	if artist == "" || title == "" || entry == nil {
		return errors.New("invalid cache entry")
	}

	key := generateKey(artist, title)

	now := time.Now()
	entry.Version = cacheVersion
	entry.CreatedAt = now.Unix()
	entry.ExpiresAt = now.Add(c.ttl).Unix()

	c.mu.Lock()
	c.memCache[key] = entry
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}
	return c.writeToDisk(c.filePath(key), entry)
}

// SetSyncOffset updates the offset of an existing entry without touching
// its expiry.
func (c *DiskCache) SetSyncOffset(artist, title string, offset float64) error {
	entry, err := c.Get(artist, title)
	if err != nil {
		return err
	}

	updated := *entry
	updated.SyncOffset = offset

	c.mu.Lock()
	c.memCache[generateKey(artist, title)] = &updated
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}
	return c.writeToDisk(c.filePath(generateKey(artist, title)), &updated)
}

func (c *DiskCache) readFromDisk(path string) (*LyricEntry, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	data, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, ErrCacheCorrupt
	}

	var entry LyricEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return nil, ErrCacheCorrupt
	}

	// version mismatch means stale format
	if entry.Version != cacheVersion {
		_ = os.Remove(path)
		return nil, ErrCacheCorrupt
	}

	return &entry, nil
}

func (c *DiskCache) writeToDisk(path string, entry *LyricEntry) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	compressed := c.encoder.EncodeAll(buf.Bytes(), nil)

	// temp file then rename so readers never see half an entry
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, compressed, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

func (c *DiskCache) entryFiles() ([]string, error) {
	if c.basePath == "" {
		return nil, nil
	}

	dirEntries, err := os.ReadDir(c.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, d := range dirEntries {
		if d.IsDir() || !strings.HasSuffix(d.Name(), entrySuffix) {
			continue
		}
		paths = append(paths, filepath.Join(c.basePath, d.Name()))
	}
	return paths, nil
}

func (c *DiskCache) Clear() error {
	c.mu.Lock()
	c.memCache = make(map[string]*LyricEntry)
	c.mu.Unlock()

	paths, err := c.entryFiles()
	if err != nil {
		return err
	}
	for _, path := range paths {
		_ = os.Remove(path)
	}
	return nil
}

// Prune removes expired and unreadable entries and reports how many went.
func (c *DiskCache) Prune() (int, error) {
	paths, err := c.entryFiles()
	if err != nil {
		return 0, err
	}

	pruned := 0
	now := time.Now().Unix()
	for _, path := range paths {
		entry, err := c.readFromDisk(path)
		if err != nil || entry.ExpiresAt <= now {
			_ = os.Remove(path)
			pruned++
		}
	}
	return pruned, nil
}

func (c *DiskCache) Stats() (count int, sizeBytes int64, err error) {
	paths, err := c.entryFiles()
	if err != nil {
		return 0, 0, err
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		count++
		sizeBytes += info.Size()
	}
	return count, sizeBytes, nil
}

func (c *DiskCache) ListAll() ([]*LyricEntry, error) {
	paths, err := c.entryFiles()
	if err != nil {
		return nil, err
	}

	var result []*LyricEntry
	for _, path := range paths {
		entry, err := c.readFromDisk(path)
		if err != nil {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}

func (c *DiskCache) Delete(artist, title string) error {
	if artist == "" || title == "" {
		return errors.New("invalid artist or title")
	}

	key := generateKey(artist, title)

	c.mu.Lock()
	delete(c.memCache, key)
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}
	if err := os.Remove(c.filePath(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

type entrySource []*LyricEntry

func (s entrySource) String(i int) string {
	return strings.ToLower(s[i].ArtistName + " " + s[i].TrackName)
}

func (s entrySource) Len() int { return len(s) }

// Similar returns up to limit cached songs that fuzzily match artist and
// title, best match first.
func (c *DiskCache) Similar(artist, title string, limit int) []*LyricEntry {
	entries, err := c.ListAll()
	if err != nil || len(entries) == 0 {
		return nil
	}

	pattern := strings.ToLower(strings.TrimSpace(artist + " " + title))
	matches := fuzzy.FindFrom(pattern, entrySource(entries))

	var result []*LyricEntry
	for _, m := range matches {
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, entries[m.Index])
	}
	return result
}
