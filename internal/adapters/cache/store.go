package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/devbush/tabr/internal/domain"
	"github.com/devbush/tabr/internal/ports"
)

// FileCache keeps warmed images on disk, one directory per URL
type FileCache struct {
	fs      afero.Fs
	baseDir string
	ttl     time.Duration
	now     func() time.Time
}

// NewFileCache creates an image cache rooted at baseDir on fs
func NewFileCache(fs afero.Fs, baseDir string, ttl time.Duration) *FileCache {
	return &FileCache{
		fs:      fs,
		baseDir: baseDir,
		ttl:     ttl,
		now:     time.Now,
	}
}

type metaFile struct {
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func keyFor(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:16])
}

func (c *FileCache) dirFor(url string) string {
	return filepath.Join(c.baseDir, keyFor(url))
}

func (c *FileCache) metaPath(dir string) string {
	return filepath.Join(dir, "meta.json")
}

func (c *FileCache) imagePath(dir string) string {
	return filepath.Join(dir, "image")
}

func (c *FileCache) Get(ctx context.Context, url string) (*ports.CachedImage, error) {
	return c.readDir(c.dirFor(url))
}

func (c *FileCache) readDir(dir string) (*ports.CachedImage, error) {
	data, err := afero.ReadFile(c.fs, c.metaPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrCacheMiss
		}
		return nil, err
	}

	var meta metaFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	if c.now().After(meta.ExpiresAt) {
		return nil, domain.ErrCacheExpired
	}

	return &ports.CachedImage{
		URL:         meta.URL,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		Path:        c.imagePath(dir),
		CreatedAt:   meta.CreatedAt,
		ExpiresAt:   meta.ExpiresAt,
	}, nil
}

func (c *FileCache) Put(ctx context.Context, url, contentType string, data []byte) (*ports.CachedImage, error) {
	dir := c.dirFor(url)
	if err := c.fs.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	if err := afero.WriteFile(c.fs, c.imagePath(dir), data, 0644); err != nil {
		return nil, err
	}

	now := c.now()
	meta := metaFile{
		URL:         url,
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   now,
		ExpiresAt:   now.Add(c.ttl),
	}

	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}

	// meta.json is written last so a crash never leaves a readable entry without bytes
	if err := afero.WriteFile(c.fs, c.metaPath(dir), raw, 0644); err != nil {
		return nil, err
	}

	return &ports.CachedImage{
		URL:         url,
		ContentType: contentType,
		Size:        meta.Size,
		Path:        c.imagePath(dir),
		CreatedAt:   meta.CreatedAt,
		ExpiresAt:   meta.ExpiresAt,
	}, nil
}

func (c *FileCache) Delete(ctx context.Context, url string) error {
	return c.fs.RemoveAll(c.dirFor(url))
}

func (c *FileCache) CleanExpired(ctx context.Context) (int, error) {
	entries, err := afero.ReadDir(c.fs, c.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cleaned := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(c.baseDir, entry.Name())
		_, err := c.readDir(dir)
		if err == domain.ErrCacheExpired || err == domain.ErrCacheMiss {
			if err := c.fs.RemoveAll(dir); err == nil {
				cleaned++
			}
		}
	}

	return cleaned, nil
}

func (c *FileCache) Clear(ctx context.Context) error {
	entries, err := afero.ReadDir(c.fs, c.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			_ = c.fs.RemoveAll(filepath.Join(c.baseDir, entry.Name()))
		}
	}

	return nil
}

func (c *FileCache) Stats(ctx context.Context) (itemCount int, totalSize int64, err error) {
	entries, err := afero.ReadDir(c.fs, c.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		itemCount++

		dirPath := filepath.Join(c.baseDir, entry.Name())
		_ = afero.Walk(c.fs, dirPath, func(path string, info os.FileInfo, err error) error {
			if err == nil && !info.IsDir() {
				totalSize += info.Size()
			}
			return nil
		})
	}

	return itemCount, totalSize, nil
}

var _ ports.ImageCache = (*FileCache)(nil)
