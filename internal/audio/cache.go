package audio

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"
	"github.com/patrickmn/go-cache"
)

// ClipCache keeps synthesized audio across steps. The memory tier expires
// entries after ttl, the optional disk tier stores zstd compressed copies.
type ClipCache struct {
	mem     *cache.Cache
	dir     string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *log.Logger
}

// NewClipCache creates a cache. An empty dir disables the disk tier.
func NewClipCache(dir string, ttl time.Duration, logger *log.Logger) (*ClipCache, error) {
	c := &ClipCache{
		mem:    cache.New(ttl, ttl*2),
		dir:    dir,
		logger: logger,
	}
	if dir == "" {
		return c, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	var err error
	c.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	c.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return c, nil
}

// CacheKey derives the key for text spoken in lang by provider at speed.
func CacheKey(provider string, lang Language, speed float64, text string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%.2f\x00%s", provider, lang, speed, text)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *ClipCache) path(key string) string {
	return filepath.Join(c.dir, key[:2], key[2:]+".zst")
}

// Get returns cached audio, promoting disk hits into memory.
func (c *ClipCache) Get(key string) ([]byte, bool) {
	if v, ok := c.mem.Get(key); ok {
		return v.([]byte), true
	}
	if c.dir == "" {
		return nil, false
	}

	compressed, err := os.ReadFile(c.path(key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("Failed to read cached clip", "key", key, "err", err)
		}
		return nil, false
	}
	data, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		c.logger.Warn("Dropping corrupt cached clip", "key", key, "err", err)
		_ = os.Remove(c.path(key))
		return nil, false
	}

	c.mem.SetDefault(key, data)
	return data, true
}

// Put stores data in both tiers. Disk errors are logged only.
func (c *ClipCache) Put(key string, data []byte) {
	c.mem.SetDefault(key, data)
	if c.dir == "" {
		return
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		c.logger.Warn("Failed to create cache shard", "err", err)
		return
	}
	compressed := c.encoder.EncodeAll(data, nil)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0644); err != nil {
		c.logger.Warn("Failed to write cached clip", "err", err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		c.logger.Warn("Failed to commit cached clip", "err", err)
		_ = os.Remove(tmp)
		return
	}
	c.logger.Debug("Cached clip",
		"size", humanize.Bytes(uint64(len(data))),
		"stored", humanize.Bytes(uint64(len(compressed))))
}

// Len returns the number of clips held in memory.
func (c *ClipCache) Len() int {
	return c.mem.ItemCount()
}

// Close releases the zstd coders.
func (c *ClipCache) Close() error {
	if c.encoder != nil {
		_ = c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}
