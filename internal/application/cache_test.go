package application

import (
	"context"
	"errors"
	"testing"

	"github.com/devbush/tabr/internal/ports"
)

// mockImageCache implements ports.ImageCache for cache service testing
type mockImageCache struct {
	itemCount    int
	totalSize    int64
	cleanedCount int
	cleared      bool
	statsErr     error
	cleanErr     error
	clearErr     error
}

func (m *mockImageCache) Get(ctx context.Context, url string) (*ports.CachedImage, error) {
	return nil, nil
}

func (m *mockImageCache) Put(ctx context.Context, url, contentType string, data []byte) (*ports.CachedImage, error) {
	return nil, nil
}

func (m *mockImageCache) Delete(ctx context.Context, url string) error {
	return nil
}

func (m *mockImageCache) CleanExpired(ctx context.Context) (int, error) {
	if m.cleanErr != nil {
		return 0, m.cleanErr
	}
	return m.cleanedCount, nil
}

func (m *mockImageCache) Clear(ctx context.Context) error {
	m.cleared = true
	return m.clearErr
}

func (m *mockImageCache) Stats(ctx context.Context) (int, int64, error) {
	if m.statsErr != nil {
		return 0, 0, m.statsErr
	}
	return m.itemCount, m.totalSize, nil
}

type mockPhotoClearer struct {
	calls int
	err   error
}

func (m *mockPhotoClearer) ClearAll(ctx context.Context) error {
	m.calls++
	return m.err
}

func TestCacheService_Stats(t *testing.T) {
	images := &mockImageCache{
		itemCount: 5,
		totalSize: 1024 * 1024 * 10, // 10MB
	}
	svc := NewCacheService(images, nil)

	ctx := context.Background()
	stats, err := svc.Stats(ctx)

	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	if stats.ItemCount != 5 {
		t.Errorf("ItemCount = %d, want 5", stats.ItemCount)
	}

	if stats.TotalSize != 1024*1024*10 {
		t.Errorf("TotalSize = %d, want %d", stats.TotalSize, 1024*1024*10)
	}
}

func TestCacheService_Stats_Error(t *testing.T) {
	expectedErr := errors.New("failed to get stats")
	svc := NewCacheService(&mockImageCache{statsErr: expectedErr}, nil)

	_, err := svc.Stats(context.Background())

	if !errors.Is(err, expectedErr) {
		t.Errorf("Stats() error = %v, want %v", err, expectedErr)
	}
}

func TestCacheService_CleanExpired(t *testing.T) {
	svc := NewCacheService(&mockImageCache{cleanedCount: 3}, nil)

	count, err := svc.CleanExpired(context.Background())

	if err != nil {
		t.Fatalf("CleanExpired() error = %v", err)
	}

	if count != 3 {
		t.Errorf("CleanExpired() = %d, want 3", count)
	}
}

func TestCacheService_CleanExpired_Error(t *testing.T) {
	expectedErr := errors.New("failed to clean")
	svc := NewCacheService(&mockImageCache{cleanErr: expectedErr}, nil)

	_, err := svc.CleanExpired(context.Background())

	if !errors.Is(err, expectedErr) {
		t.Errorf("CleanExpired() error = %v, want %v", err, expectedErr)
	}
}

func TestCacheService_Clear(t *testing.T) {
	tests := []struct {
		name           string
		all            bool
		wantPhotoCalls int
	}{
		{name: "images only", all: false, wantPhotoCalls: 0},
		{name: "all layers", all: true, wantPhotoCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images := &mockImageCache{}
			photos := &mockPhotoClearer{}
			svc := NewCacheService(images, photos)

			if err := svc.Clear(context.Background(), tt.all); err != nil {
				t.Fatalf("Clear() error = %v", err)
			}

			if !images.cleared {
				t.Error("Clear() did not clear the image cache")
			}
			if photos.calls != tt.wantPhotoCalls {
				t.Errorf("ClearAll calls = %d, want %d", photos.calls, tt.wantPhotoCalls)
			}
		})
	}
}

func TestCacheService_Clear_Error(t *testing.T) {
	imageErr := errors.New("failed to clear images")
	photoErr := errors.New("failed to clear photos")
	svc := NewCacheService(&mockImageCache{clearErr: imageErr}, &mockPhotoClearer{err: photoErr})

	err := svc.Clear(context.Background(), true)

	if !errors.Is(err, imageErr) {
		t.Errorf("Clear() error = %v, want %v", err, imageErr)
	}
	if !errors.Is(err, photoErr) {
		t.Errorf("Clear() error = %v, want %v", err, photoErr)
	}
}
