package application

import (
	"context"
	"strings"

	"github.com/devbush/tabr/internal/domain"
	"github.com/devbush/tabr/internal/ports"
)

// Sync-tier keys
const keyPhotoSource = "photoSource"

var apiKeyNames = map[domain.ProviderID]string{
	domain.ProviderUnsplash: "unsplashKey",
	domain.ProviderPixabay:  "pixabayKey",
}

// PreferencesService reads and writes small user preferences on the sync tier
type PreferencesService struct {
	store           ports.KVStore
	defaultProvider domain.ProviderID
	defaultKeys     map[domain.ProviderID]string
}

// NewPreferencesService creates a preferences service. defaultKeys are used
// for providers that have no key stored, typically from the environment.
func NewPreferencesService(store ports.KVStore, defaultProvider domain.ProviderID, defaultKeys map[domain.ProviderID]string) *PreferencesService {
	if defaultProvider == "" {
		defaultProvider = domain.DefaultProvider
	}
	return &PreferencesService{
		store:           store,
		defaultProvider: defaultProvider,
		defaultKeys:     defaultKeys,
	}
}

// Provider returns the selected provider, falling back to the default
func (s *PreferencesService) Provider(ctx context.Context) (domain.ProviderID, error) {
	var name string
	found, err := loadJSON(ctx, s.store, ports.TierSync, keyPhotoSource, &name)
	if err != nil {
		return s.defaultProvider, err
	}
	if !found {
		return s.defaultProvider, nil
	}
	id, err := domain.ParseProviderID(name)
	if err != nil {
		return s.defaultProvider, nil
	}
	return id, nil
}

// SetProvider persists the selected provider
func (s *PreferencesService) SetProvider(ctx context.Context, provider domain.ProviderID) error {
	if _, err := domain.ParseProviderID(string(provider)); err != nil {
		return err
	}
	return saveJSON(ctx, s.store, ports.TierSync, keyPhotoSource, string(provider))
}

// APIKey implements ports.Credentials
func (s *PreferencesService) APIKey(ctx context.Context, provider domain.ProviderID) (string, error) {
	name, ok := apiKeyNames[provider]
	if !ok {
		return "", domain.ErrUnknownProvider
	}

	var key string
	found, err := loadJSON(ctx, s.store, ports.TierSync, name, &key)
	if err == nil && found && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), nil
	}
	if def := s.defaultKeys[provider]; def != "" {
		return def, err
	}
	return "", err
}

// SetAPIKey stores key for provider; an empty key removes it
func (s *PreferencesService) SetAPIKey(ctx context.Context, provider domain.ProviderID, key string) error {
	name, ok := apiKeyNames[provider]
	if !ok {
		return domain.ErrUnknownProvider
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return s.store.Remove(ctx, ports.TierSync, []string{name})
	}
	return saveJSON(ctx, s.store, ports.TierSync, name, key)
}

var _ ports.Credentials = (*PreferencesService)(nil)
