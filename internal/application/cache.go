package application

import (
	"context"
	"errors"

	"github.com/devbush/tabr/internal/ports"
)

// CacheStats holds cache statistics
type CacheStats struct {
	ItemCount int
	TotalSize int64
}

// photoCacheClearer drops the photo cache layers, keeping favorites
type photoCacheClearer interface {
	ClearAll(ctx context.Context) error
}

// CacheService handles cache management operations for the warmed image
// cache and the photo cache layers
type CacheService struct {
	images ports.ImageCache
	photos photoCacheClearer
}

// NewCacheService creates a new cache service. photos may be nil.
func NewCacheService(images ports.ImageCache, photos photoCacheClearer) *CacheService {
	return &CacheService{images: images, photos: photos}
}

// Stats returns cache statistics
func (s *CacheService) Stats(ctx context.Context) (*CacheStats, error) {
	count, size, err := s.images.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &CacheStats{
		ItemCount: count,
		TotalSize: size,
	}, nil
}

// CleanExpired removes expired warmed images
func (s *CacheService) CleanExpired(ctx context.Context) (int, error) {
	return s.images.CleanExpired(ctx)
}

// Clear removes warmed images, and with all also the API, preload and
// carousel caches
func (s *CacheService) Clear(ctx context.Context, all bool) error {
	err := s.images.Clear(ctx)
	if all && s.photos != nil {
		err = errors.Join(err, s.photos.ClearAll(ctx))
	}
	return err
}
