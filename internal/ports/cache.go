package ports

import (
	"context"
	"time"

	"github.com/devbush/tabr/internal/domain"
)

// APICache memoizes the last live photo per provider for a short time
type APICache interface {
	// GetAPIPhoto returns the cached photo, or nil if absent or older than maxAge.
	GetAPIPhoto(ctx context.Context, provider domain.ProviderID, maxAge time.Duration) (*domain.Photo, error)

	// SetAPIPhoto stores photo for provider. Fallback photos are never stored.
	SetAPIPhoto(ctx context.Context, provider domain.ProviderID, photo domain.Photo) error

	// InvalidateAPIPhoto drops the provider's slot.
	InvalidateAPIPhoto(ctx context.Context, provider domain.ProviderID) error
}

// PhotoCache is the single capability covering every photo cache layer.
// Lookup priority is decided by the orchestrator: API cache, then preload, then live.
type PhotoCache interface {
	APICache

	// Preload queue (provider scoped, no TTL)

	// Preloaded returns the queued photos for provider, oldest consumption first.
	Preloaded(ctx context.Context, provider domain.ProviderID) ([]domain.Photo, error)

	// SetPreloaded replaces the queue for provider.
	SetPreloaded(ctx context.Context, provider domain.ProviderID, photos []domain.Photo) error

	// TakePreloaded pops index 0 of the queue, returning nil when empty.
	TakePreloaded(ctx context.Context, provider domain.ProviderID) (*domain.Photo, error)

	// MergePreloaded prepends fresh to the queue, drops duplicates and exclude,
	// truncates to capacity and returns the stored queue.
	MergePreloaded(ctx context.Context, provider domain.ProviderID, fresh []domain.Photo, exclude string, capacity int) ([]domain.Photo, error)

	// ClearPreloaded empties the queue for every provider.
	ClearPreloaded(ctx context.Context) error

	// Carousel entry (TTL bounded)

	GetCarousel(ctx context.Context, maxAge time.Duration) (*domain.FavoritePhoto, error)
	SetCarousel(ctx context.Context, photo domain.FavoritePhoto) error
	ClearCarousel(ctx context.Context) error
}

// CachedImage is a warmed image kept on disk
type CachedImage struct {
	URL         string
	ContentType string
	Size        int64
	Path        string    // location of the image bytes
	CreatedAt   time.Time // when this image was warmed
	ExpiresAt   time.Time // when this image should be considered stale
}

// ImageCache persists warmed image bytes keyed by URL.
type ImageCache interface {
	// Get retrieves a cached image by URL, returning ErrCacheMiss if not found.
	Get(ctx context.Context, url string) (*CachedImage, error)

	// Put stores image bytes for url.
	Put(ctx context.Context, url, contentType string, data []byte) (*CachedImage, error)

	// Delete removes a specific image from the cache.
	Delete(ctx context.Context, url string) error

	// CleanExpired removes all expired images and returns the count removed.
	CleanExpired(ctx context.Context) (int, error)

	// Clear removes all cached images.
	Clear(ctx context.Context) error

	// Stats returns cache statistics: item count and total size in bytes.
	Stats(ctx context.Context) (itemCount int, totalSize int64, err error)
}
