package audio

import (
	"os"
	"testing"
	"time"

	"codeberg.org/snonux/korengpro/internal"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey("edge-tts", Source, 1.2, "안녕")
	if a != CacheKey("edge-tts", Source, 1.2, "안녕") {
		t.Error("CacheKey() is not stable")
	}
	others := []string{
		CacheKey("openai", Source, 1.2, "안녕"),
		CacheKey("edge-tts", Target, 1.2, "안녕"),
		CacheKey("edge-tts", Source, 1.0, "안녕"),
		CacheKey("edge-tts", Source, 1.2, "안녕하세요"),
	}
	for _, o := range others {
		if o == a {
			t.Error("different inputs produced the same key")
		}
	}
}

func TestClipCacheMemoryOnly(t *testing.T) {
	c, err := NewClipCache("", time.Minute, internal.DiscardLogger())
	if err != nil {
		t.Fatalf("NewClipCache() error = %v", err)
	}
	defer c.Close()

	key := CacheKey("mock", Source, 1, "a")
	if _, ok := c.Get(key); ok {
		t.Error("Get() hit on empty cache")
	}
	c.Put(key, []byte("clip"))
	data, ok := c.Get(key)
	if !ok || string(data) != "clip" {
		t.Errorf("Get() = %q, %v", data, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestClipCacheDiskTier(t *testing.T) {
	dir := t.TempDir()
	key := CacheKey("mock", Target, 1, "Hello")

	first, err := NewClipCache(dir, time.Minute, internal.DiscardLogger())
	if err != nil {
		t.Fatalf("NewClipCache() error = %v", err)
	}
	first.Put(key, []byte("compressed clip payload"))
	first.Close()

	if _, err := os.Stat(first.path(key)); err != nil {
		t.Fatalf("disk entry missing: %v", err)
	}

	// A fresh cache has an empty memory tier and reads from disk
	second, err := NewClipCache(dir, time.Minute, internal.DiscardLogger())
	if err != nil {
		t.Fatalf("NewClipCache() error = %v", err)
	}
	defer second.Close()

	data, ok := second.Get(key)
	if !ok || string(data) != "compressed clip payload" {
		t.Errorf("Get() = %q, %v", data, ok)
	}
	if second.Len() != 1 {
		t.Error("disk hit was not promoted to memory")
	}
}

func TestClipCacheCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c, err := NewClipCache(dir, time.Minute, internal.DiscardLogger())
	if err != nil {
		t.Fatalf("NewClipCache() error = %v", err)
	}
	defer c.Close()

	key := CacheKey("mock", Target, 1, "broken")
	c.Put(key, []byte("x"))
	c.mem.Delete(key)
	if err := os.WriteFile(c.path(key), []byte("not zstd"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get(key); ok {
		t.Error("Get() returned a corrupt entry")
	}
	if _, err := os.Stat(c.path(key)); !os.IsNotExist(err) {
		t.Error("corrupt entry was not removed")
	}
}
