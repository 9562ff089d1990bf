package application

import (
	"context"
	"sync"
	"time"

	"github.com/devbush/tabr/internal/domain"
	"github.com/devbush/tabr/internal/ports"
)

// Local-tier keys owned by the photo cache
const (
	keyAPICachePrefix = "tabr_cache_"
	keyPreload        = "tabr_preload"
	keyCarouselCache  = "tabr_carousel_cache"
	keyCurrent        = "tabr_current"
)

func apiCacheKey(provider domain.ProviderID) string {
	return keyAPICachePrefix + string(provider)
}

type preloadBlob struct {
	Provider domain.ProviderID `json:"provider"`
	Photos   []domain.Photo    `json:"photos"`
}

// Shown is the photo currently on screen
type Shown struct {
	Photo    domain.Photo      `json:"photo"`
	Provider domain.ProviderID `json:"provider"`
	Carousel bool              `json:"carousel"`
	ShownAt  time.Time         `json:"shownAt"`
}

// PhotoCacheService implements every photo cache layer on the local tier.
// The mutex serialises read-modify-write of the stored blobs.
type PhotoCacheService struct {
	store ports.KVStore
	mu    sync.Mutex
	now   func() time.Time
}

// NewPhotoCacheService creates a photo cache over store
func NewPhotoCacheService(store ports.KVStore) *PhotoCacheService {
	return &PhotoCacheService{store: store, now: time.Now}
}

// API result cache

func (s *PhotoCacheService) GetAPIPhoto(ctx context.Context, provider domain.ProviderID, maxAge time.Duration) (*domain.Photo, error) {
	var entry domain.CacheEntry[domain.Photo]
	found, err := loadJSON(ctx, s.store, ports.TierLocal, apiCacheKey(provider), &entry)
	if err != nil || !found {
		return nil, err
	}
	if !entry.Valid(s.now(), maxAge) {
		return nil, nil
	}
	photo := entry.Payload
	return &photo, nil
}

func (s *PhotoCacheService) SetAPIPhoto(ctx context.Context, provider domain.ProviderID, photo domain.Photo) error {
	if photo.IsFallback() || photo.URL == "" {
		return nil
	}
	return saveJSON(ctx, s.store, ports.TierLocal, apiCacheKey(provider), domain.NewCacheEntry(photo, s.now()))
}

func (s *PhotoCacheService) InvalidateAPIPhoto(ctx context.Context, provider domain.ProviderID) error {
	return s.store.Remove(ctx, ports.TierLocal, []string{apiCacheKey(provider)})
}

// Preload queue

func (s *PhotoCacheService) Preloaded(ctx context.Context, provider domain.ProviderID) ([]domain.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preloadedLocked(ctx, provider)
}

func (s *PhotoCacheService) preloadedLocked(ctx context.Context, provider domain.ProviderID) ([]domain.Photo, error) {
	var blob preloadBlob
	found, err := loadJSON(ctx, s.store, ports.TierLocal, keyPreload, &blob)
	if err != nil || !found {
		return nil, err
	}
	if blob.Provider != provider {
		return nil, nil
	}
	return blob.Photos, nil
}

// SetPreloaded replaces the queue for provider. Fallbacks and repeated URLs
// are dropped.
func (s *PhotoCacheService) SetPreloaded(ctx context.Context, provider domain.ProviderID, photos []domain.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]domain.Photo, 0, len(photos))
	seen := make(map[string]bool, len(photos))
	for _, p := range photos {
		if p.URL == "" || p.IsFallback() || seen[p.URL] {
			continue
		}
		seen[p.URL] = true
		kept = append(kept, p)
	}
	return saveJSON(ctx, s.store, ports.TierLocal, keyPreload, preloadBlob{Provider: provider, Photos: kept})
}

func (s *PhotoCacheService) TakePreloaded(ctx context.Context, provider domain.ProviderID) (*domain.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	photos, err := s.preloadedLocked(ctx, provider)
	if err != nil || len(photos) == 0 {
		return nil, err
	}

	next := photos[0]
	rest := append([]domain.Photo(nil), photos[1:]...)
	if err := saveJSON(ctx, s.store, ports.TierLocal, keyPreload, preloadBlob{Provider: provider, Photos: rest}); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *PhotoCacheService) MergePreloaded(ctx context.Context, provider domain.ProviderID, fresh []domain.Photo, exclude string, capacity int) ([]domain.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.preloadedLocked(ctx, provider)
	if err != nil {
		return nil, err
	}

	merged := make([]domain.Photo, 0, capacity)
	seen := make(map[string]bool, len(fresh)+len(existing))
	if exclude != "" {
		seen[exclude] = true
	}
	for _, group := range [][]domain.Photo{fresh, existing} {
		for _, p := range group {
			if len(merged) == capacity {
				break
			}
			if p.URL == "" || p.IsFallback() || seen[p.URL] {
				continue
			}
			seen[p.URL] = true
			merged = append(merged, p)
		}
	}

	if err := saveJSON(ctx, s.store, ports.TierLocal, keyPreload, preloadBlob{Provider: provider, Photos: merged}); err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *PhotoCacheService) ClearPreloaded(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Remove(ctx, ports.TierLocal, []string{keyPreload})
}

// Carousel entry

func (s *PhotoCacheService) GetCarousel(ctx context.Context, maxAge time.Duration) (*domain.FavoritePhoto, error) {
	var entry domain.CacheEntry[domain.FavoritePhoto]
	found, err := loadJSON(ctx, s.store, ports.TierLocal, keyCarouselCache, &entry)
	if err != nil || !found {
		return nil, err
	}
	if !entry.Valid(s.now(), maxAge) {
		return nil, nil
	}
	fav := entry.Payload
	return &fav, nil
}

func (s *PhotoCacheService) SetCarousel(ctx context.Context, photo domain.FavoritePhoto) error {
	return saveJSON(ctx, s.store, ports.TierLocal, keyCarouselCache, domain.NewCacheEntry(photo, s.now()))
}

func (s *PhotoCacheService) ClearCarousel(ctx context.Context) error {
	return s.store.Remove(ctx, ports.TierLocal, []string{keyCarouselCache})
}

// Current photo

// Current returns the last shown photo, or nil if nothing was shown yet
func (s *PhotoCacheService) Current(ctx context.Context) (*Shown, error) {
	var shown Shown
	found, err := loadJSON(ctx, s.store, ports.TierLocal, keyCurrent, &shown)
	if err != nil || !found {
		return nil, err
	}
	return &shown, nil
}

// SetCurrent records the photo now on screen
func (s *PhotoCacheService) SetCurrent(ctx context.Context, shown Shown) error {
	if shown.ShownAt.IsZero() {
		shown.ShownAt = s.now()
	}
	return saveJSON(ctx, s.store, ports.TierLocal, keyCurrent, shown)
}

// ClearAll drops the API, preload and carousel caches. Favorites are untouched.
func (s *PhotoCacheService) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := []string{keyPreload, keyCarouselCache}
	for _, p := range domain.Providers {
		keys = append(keys, apiCacheKey(p))
	}
	return s.store.Remove(ctx, ports.TierLocal, keys)
}

var _ ports.PhotoCache = (*PhotoCacheService)(nil)
