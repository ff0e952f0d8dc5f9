package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestCache(t *testing.T) *DiskCache {
	t.Helper()
	c, err := NewDiskCache(filepath.Join(t.TempDir(), "lyrics"))
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	return c
}

func TestDiskCache_SetGet(t *testing.T) {
	c := newTestCache(t)

	entry := &LyricEntry{
		TrackName:    "Counting Stars",
		ArtistName:   "OneRepublic",
		SyncedLyrics: "[00:00.00]Lately\n[00:00.50]I\n",
	}
	if err := c.Set("OneRepublic", "Counting Stars", entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// a fresh cache over the same directory must read it from disk
	reopened, err := NewDiskCache(c.Dir())
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	got, err := reopened.Get("onerepublic", "counting stars")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.SyncedLyrics != entry.SyncedLyrics {
		t.Errorf("Expected lyrics %q, got %q", entry.SyncedLyrics, got.SyncedLyrics)
	}
	if got.Version != cacheVersion {
		t.Errorf("Expected version %d, got %d", cacheVersion, got.Version)
	}
}

func TestDiskCache_Miss(t *testing.T) {
	c := newTestCache(t)

	if _, err := c.Get("nobody", "nothing"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
	if _, err := c.Get("", "title"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for empty artist, got %v", err)
	}
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	c := newTestCache(t)

	path := c.filePath(generateKey("a", "b"))
	if err := os.WriteFile(path, []byte("definitely not zstd"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get("a", "b"); !errors.Is(err, ErrCacheCorrupt) {
		t.Errorf("Expected ErrCacheCorrupt, got %v", err)
	}

	pruned, err := c.Prune()
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("Expected 1 pruned entry, got %d", pruned)
	}
}

func TestDiskCache_SyncOffset(t *testing.T) {
	c := newTestCache(t)

	if err := c.SetSyncOffset("a", "b", 1.5); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for unknown song, got %v", err)
	}

	if err := c.Set("a", "b", &LyricEntry{TrackName: "b", ArtistName: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := c.SetSyncOffset("a", "b", -0.3); err != nil {
		t.Fatalf("SetSyncOffset failed: %v", err)
	}

	reopened, _ := NewDiskCache(c.Dir())
	got, err := reopened.Get("a", "b")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.SyncOffset != -0.3 {
		t.Errorf("Expected offset -0.3, got %v", got.SyncOffset)
	}
}

func TestDiskCache_StatsListDelete(t *testing.T) {
	c := newTestCache(t)

	songs := [][2]string{
		{"OneRepublic", "Counting Stars"},
		{"OneRepublic", "Apologize"},
		{"Surf Curse", "Freaks"},
	}
	for _, s := range songs {
		if err := c.Set(s[0], s[1], &LyricEntry{ArtistName: s[0], TrackName: s[1]}); err != nil {
			t.Fatal(err)
		}
	}

	count, size, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if count != 3 || size <= 0 {
		t.Errorf("Expected 3 entries with a size, got %d / %d", count, size)
	}

	all, err := c.ListAll()
	if err != nil || len(all) != 3 {
		t.Fatalf("Expected 3 entries, got %d (%v)", len(all), err)
	}

	if err := c.Delete("Surf Curse", "Freaks"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get("Surf Curse", "Freaks"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after delete, got %v", err)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if count, _, _ := c.Stats(); count != 0 {
		t.Errorf("Expected empty cache after Clear, got %d", count)
	}
}

func TestDiskCache_Similar(t *testing.T) {
	c := newTestCache(t)

	for _, s := range [][2]string{
		{"OneRepublic", "Counting Stars"},
		{"Surf Curse", "Freaks"},
	} {
		if err := c.Set(s[0], s[1], &LyricEntry{ArtistName: s[0], TrackName: s[1]}); err != nil {
			t.Fatal(err)
		}
	}

	matches := c.Similar("onerepublic", "counting", 5)
	if len(matches) == 0 {
		t.Fatal("Expected at least one suggestion")
	}
	if matches[0].TrackName != "Counting Stars" {
		t.Errorf("Expected Counting Stars first, got %q", matches[0].TrackName)
	}
}

func TestDiskCache_MemoryOnly(t *testing.T) {
	c, err := NewDiskCache("")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set("a", "b", &LyricEntry{}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := c.Get("a", "b"); err != nil {
		t.Errorf("Expected memory hit, got %v", err)
	}
	if count, _, _ := c.Stats(); count != 0 {
		t.Errorf("Expected no files for memory only cache, got %d", count)
	}
}
