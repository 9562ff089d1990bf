package cache

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/devbush/tabr/internal/domain"
)

const testURL = "https://images.unsplash.com/photo-1?w=1920"

func TestFileCache_PutGet(t *testing.T) {
	cache := NewFileCache(afero.NewMemMapFs(), "/images", 24*time.Hour)

	ctx := context.Background()
	_, err := cache.Put(ctx, testURL, "image/jpeg", []byte("jpegbytes"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := cache.Get(ctx, testURL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.URL != testURL {
		t.Errorf("Get() URL = %s, want %s", got.URL, testURL)
	}
	if got.Size != int64(len("jpegbytes")) {
		t.Errorf("Get() size = %d, want %d", got.Size, len("jpegbytes"))
	}
	if got.ContentType != "image/jpeg" {
		t.Errorf("Get() content type = %s, want image/jpeg", got.ContentType)
	}
}

func TestFileCache_GetMiss(t *testing.T) {
	cache := NewFileCache(afero.NewMemMapFs(), "/images", time.Hour)

	ctx := context.Background()
	_, err := cache.Get(ctx, "https://nowhere.example/x.jpg")

	if err != domain.ErrCacheMiss {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestFileCache_GetExpired(t *testing.T) {
	cache := NewFileCache(afero.NewMemMapFs(), "/images", time.Hour)
	start := time.Now()
	cache.now = func() time.Time { return start }

	ctx := context.Background()
	_, _ = cache.Put(ctx, testURL, "image/jpeg", []byte("x"))

	cache.now = func() time.Time { return start.Add(2 * time.Hour) }
	_, err := cache.Get(ctx, testURL)
	if err != domain.ErrCacheExpired {
		t.Errorf("Get() error = %v, want ErrCacheExpired", err)
	}
}

func TestFileCache_CleanExpired(t *testing.T) {
	cache := NewFileCache(afero.NewMemMapFs(), "/images", time.Hour)
	start := time.Now()
	cache.now = func() time.Time { return start }

	ctx := context.Background()
	_, _ = cache.Put(ctx, "https://a.example/old.jpg", "image/jpeg", []byte("old"))

	cache.now = func() time.Time { return start.Add(90 * time.Minute) }
	_, _ = cache.Put(ctx, "https://a.example/new.jpg", "image/jpeg", []byte("new"))

	cleaned, err := cache.CleanExpired(ctx)
	if err != nil {
		t.Fatalf("CleanExpired() error = %v", err)
	}

	if cleaned != 1 {
		t.Errorf("CleanExpired() = %d, want 1", cleaned)
	}

	count, _, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Stats() count = %d, want 1", count)
	}
}

func TestFileCache_StatsAndClear(t *testing.T) {
	cache := NewFileCache(afero.NewMemMapFs(), "/images", time.Hour)
	ctx := context.Background()

	count, size, err := cache.Stats(ctx)
	if err != nil || count != 0 || size != 0 {
		t.Fatalf("Stats() on empty cache = %d, %d, %v", count, size, err)
	}

	_, _ = cache.Put(ctx, "https://a.example/1.jpg", "image/jpeg", []byte("12345"))
	_, _ = cache.Put(ctx, "https://a.example/2.jpg", "image/jpeg", []byte("123"))

	count, size, err = cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Stats() count = %d, want 2", count)
	}
	if size < 8 {
		t.Errorf("Stats() size = %d, want at least the 8 image bytes", size)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	count, _, _ = cache.Stats(ctx)
	if count != 0 {
		t.Errorf("Stats() after Clear count = %d, want 0", count)
	}
}

func TestFileCache_Delete(t *testing.T) {
	cache := NewFileCache(afero.NewMemMapFs(), "/images", time.Hour)
	ctx := context.Background()

	_, _ = cache.Put(ctx, testURL, "image/png", []byte("png"))
	if err := cache.Delete(ctx, testURL); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := cache.Get(ctx, testURL); err != domain.ErrCacheMiss {
		t.Errorf("Get() after Delete error = %v, want ErrCacheMiss", err)
	}
}
