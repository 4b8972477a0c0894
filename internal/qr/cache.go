package qr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultTTL  = 24 * time.Hour
	DefaultSize = 512
)

// Cache generates QR PNGs on demand and keeps them on disk, keyed by a hash
// of the encoded content. Entries older than the TTL are regenerated.
type Cache struct {
	dir  string
	ttl  time.Duration
	size int

	mu  sync.Mutex
	now func() time.Time
}

func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create qr cache directory: %w", err)
	}
	return &Cache{dir: dir, ttl: ttl, size: DefaultSize, now: time.Now}, nil
}

// PNG returns the path of the cached image for content, rendering it on a
// miss or after expiry.
func (c *Cache) PNG(content string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := filepath.Join(c.dir, Filename(content))
	if info, err := os.Stat(path); err == nil {
		if c.now().Sub(info.ModTime()) <= c.ttl {
			return path, nil
		}
		os.Remove(path)
	}

	data, err := qrcode.Encode(content, qrcode.High, c.size)
	if err != nil {
		return "", fmt.Errorf("failed to encode qr image: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write qr image: %w", err)
	}
	slog.Debug("QR image rendered", "path", path)
	return path, nil
}

// Filename is the basename an image for content is stored under.
func Filename(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:]) + ".png"
}

// Resolve maps a requested basename back to a path inside the cache. Names
// that try to leave the cache directory are rejected.
func (c *Cache) Resolve(name string) (string, bool) {
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, ".png") {
		return "", false
	}
	path := filepath.Join(c.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Cleanup drops expired images and reports how many were removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0
	}
	removed := 0
	cutoff := c.now().Add(-c.ttl)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(c.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		slog.Debug("Cleaned up qr cache", "removed", removed)
	}
	return removed
}

// StartCleanup sweeps the cache on an interval until the context ends.
func (c *Cache) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cleanup()
		}
	}
}

// Terminal renders content as a character-cell QR block for the console.
func Terminal(content string) (string, error) {
	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to encode qr code: %w", err)
	}
	return code.ToSmallString(false), nil
}

// WritePNG renders content to a standalone PNG outside the cache.
func WritePNG(content, path string, size int) error {
	if size <= 0 {
		size = DefaultSize
	}
	data, err := qrcode.Encode(content, qrcode.High, size)
	if err != nil {
		return fmt.Errorf("failed to encode qr image: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write qr image: %w", err)
	}
	return nil
}
