package domain

import (
	"fmt"
	"strings"
	"time"
)

// ProviderID identifies one of the supported photo sources
type ProviderID string

const (
	ProviderUnsplash ProviderID = "unsplash"
	ProviderPixabay  ProviderID = "pixabay"
)

// Providers lists every supported provider in display order.
var Providers = []ProviderID{ProviderUnsplash, ProviderPixabay}

// DefaultProvider is used when no preference has been stored.
const DefaultProvider = ProviderUnsplash

// ParseProviderID validates a provider name such as "unsplash" or "Pixabay".
func ParseProviderID(input string) (ProviderID, error) {
	id := ProviderID(strings.ToLower(strings.TrimSpace(input)))
	for _, p := range Providers {
		if p == id {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, input)
}

func (p ProviderID) String() string {
	return string(p)
}

// ErrorKind explains why a photo is a static fallback instead of a live fetch
type ErrorKind string

const (
	ErrorNone  ErrorKind = ""
	ErrorNoKey ErrorKind = "no-key"
	ErrorAPI   ErrorKind = "api-error"
)

// Photo is a displayable background image with its attribution.
// A non-empty ErrorKind marks URL as a bundled fallback.
type Photo struct {
	URL              string    `json:"url"`
	PhotographerName string    `json:"photographerName"`
	PhotographerLink string    `json:"photographerLink"`
	OriginalLink     string    `json:"originalLink"`
	ErrorKind        ErrorKind `json:"errorType,omitempty"`
}

// IsFallback reports whether the photo was substituted for a failed fetch
func (p Photo) IsFallback() bool {
	return p.ErrorKind != ErrorNone
}

// WithError returns a copy of p flagged with kind
func (p Photo) WithError(kind ErrorKind) Photo {
	p.ErrorKind = kind
	return p
}

// FavoritePhoto is a photo the user saved, unique by URL
type FavoritePhoto struct {
	Photo
	Source  ProviderID `json:"source"`
	SavedAt time.Time  `json:"savedAt"`
}

// NewFavorite records photo as saved from source at the given time.
// Fallback flags are dropped: a saved photo is always displayable.
func NewFavorite(photo Photo, source ProviderID, savedAt time.Time) FavoritePhoto {
	photo.ErrorKind = ErrorNone
	return FavoritePhoto{Photo: photo, Source: source, SavedAt: savedAt}
}

// CacheEntry wraps a cached payload with the time it was written
type CacheEntry[T any] struct {
	Payload   T         `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCacheEntry stamps payload with now
func NewCacheEntry[T any](payload T, now time.Time) CacheEntry[T] {
	return CacheEntry[T]{Payload: payload, Timestamp: now}
}

// Valid reports whether the entry is younger than maxAge at now.
// Stale entries are treated as absent, not deleted.
func (e CacheEntry[T]) Valid(now time.Time, maxAge time.Duration) bool {
	if e.Timestamp.IsZero() {
		return false
	}
	return now.Sub(e.Timestamp) < maxAge
}
