package application

import (
	"context"
	"sync"

	"github.com/devbush/tabr/internal/domain"
	"github.com/devbush/tabr/internal/ports"
)

const keyFavorites = "tabr_favorites"

// FavoritesService manages the durable, URL-unique list of saved photos.
// Only explicit Add and Remove calls mutate it.
type FavoritesService struct {
	store ports.KVStore
	mu    sync.Mutex
}

// NewFavoritesService creates a favorites service over store
func NewFavoritesService(store ports.KVStore) *FavoritesService {
	return &FavoritesService{store: store}
}

// List returns all favorites in the order they were saved
func (s *FavoritesService) List(ctx context.Context) ([]domain.FavoritePhoto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(ctx)
}

func (s *FavoritesService) listLocked(ctx context.Context) ([]domain.FavoritePhoto, error) {
	var list []domain.FavoritePhoto
	if _, err := loadJSON(ctx, s.store, ports.TierLocal, keyFavorites, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Add saves photo unless its URL is already a favorite, reporting whether it was added
func (s *FavoritesService) Add(ctx context.Context, photo domain.FavoritePhoto) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.listLocked(ctx)
	if err != nil {
		return false, err
	}
	for _, f := range list {
		if f.URL == photo.URL {
			return false, nil
		}
	}

	list = append(list, photo)
	if err := saveJSON(ctx, s.store, ports.TierLocal, keyFavorites, list); err != nil {
		return false, err
	}
	return true, nil
}

// Remove drops the favorite with url, reporting whether one was removed
func (s *FavoritesService) Remove(ctx context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.listLocked(ctx)
	if err != nil {
		return false, err
	}

	kept := make([]domain.FavoritePhoto, 0, len(list))
	for _, f := range list {
		if f.URL != url {
			kept = append(kept, f)
		}
	}
	if len(kept) == len(list) {
		return false, nil
	}

	if err := saveJSON(ctx, s.store, ports.TierLocal, keyFavorites, kept); err != nil {
		return false, err
	}
	return true, nil
}

// IsFavorite reports whether url has been saved
func (s *FavoritesService) IsFavorite(ctx context.Context, url string) (bool, error) {
	list, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	for _, f := range list {
		if f.URL == url {
			return true, nil
		}
	}
	return false, nil
}

// Count returns how many favorites are saved
func (s *FavoritesService) Count(ctx context.Context) (int, error) {
	list, err := s.List(ctx)
	return len(list), err
}
