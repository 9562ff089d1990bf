package application

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/devbush/tabr/internal/domain"
	"github.com/devbush/tabr/internal/ports"
)

const keyCarouselMode = "tabr_carousel_mode"

// CarouselService picks which favorite to show while carousel mode is on.
// The pick is memoized so repeated renders within the TTL show the same photo.
type CarouselService struct {
	cache     ports.PhotoCache
	favorites *FavoritesService
	store     ports.KVStore
	ttl       time.Duration
	intn      func(n int) int
}

// NewCarouselService creates a carousel service with the given memo TTL
func NewCarouselService(cache ports.PhotoCache, favorites *FavoritesService, store ports.KVStore, ttl time.Duration) *CarouselService {
	return &CarouselService{
		cache:     cache,
		favorites: favorites,
		store:     store,
		ttl:       ttl,
		intn:      rand.IntN,
	}
}

// RandomFavorite returns the memoized favorite, or picks and memoizes a new one.
// It returns nil without error when there are no favorites.
func (s *CarouselService) RandomFavorite(ctx context.Context) (*domain.FavoritePhoto, error) {
	cached, err := s.cache.GetCarousel(ctx, s.ttl)
	if err == nil && cached != nil {
		return cached, nil
	}
	return s.pick(ctx, "")
}

// Reroll discards the memoized favorite and picks a new one, avoiding
// avoidURL whenever another favorite exists.
func (s *CarouselService) Reroll(ctx context.Context, avoidURL string) (*domain.FavoritePhoto, error) {
	if err := s.Clear(ctx); err != nil {
		return nil, err
	}
	return s.pick(ctx, avoidURL)
}

func (s *CarouselService) pick(ctx context.Context, avoidURL string) (*domain.FavoritePhoto, error) {
	list, err := s.favorites.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	candidates := list
	if avoidURL != "" && len(list) > 1 {
		candidates = make([]domain.FavoritePhoto, 0, len(list))
		for _, f := range list {
			if f.URL != avoidURL {
				candidates = append(candidates, f)
			}
		}
		if len(candidates) == 0 {
			candidates = list
		}
	}

	chosen := candidates[s.intn(len(candidates))]
	// Memo write failures only cost a re-roll on the next render.
	_ = s.cache.SetCarousel(ctx, chosen)
	return &chosen, nil
}

// Clear forces the next RandomFavorite call to re-roll
func (s *CarouselService) Clear(ctx context.Context) error {
	return s.cache.ClearCarousel(ctx)
}

// Mode reports whether carousel mode is persisted as on
func (s *CarouselService) Mode(ctx context.Context) (bool, error) {
	var on bool
	if _, err := loadJSON(ctx, s.store, ports.TierLocal, keyCarouselMode, &on); err != nil {
		return false, err
	}
	return on, nil
}

// SetMode persists the carousel mode flag
func (s *CarouselService) SetMode(ctx context.Context, on bool) error {
	return saveJSON(ctx, s.store, ports.TierLocal, keyCarouselMode, on)
}
