package ports

import (
	"context"

	"github.com/devbush/tabr/internal/domain"
)

// PhotoProvider fetches a random background photo from a remote photo API
type PhotoProvider interface {
	// ID returns which provider this is
	ID() domain.ProviderID

	// FetchPhoto never fails: errors resolve to a fallback photo with ErrorKind set.
	// skipCache bypasses the API result cache and asks the API for something new.
	FetchPhoto(ctx context.Context, skipCache bool) domain.Photo
}

// Credentials supplies the API key configured for a provider
type Credentials interface {
	// APIKey returns the key for provider, or "" when none is configured
	APIKey(ctx context.Context, provider domain.ProviderID) (string, error)
}

// ImageProber warms a photo URL so the next display of it is instant
type ImageProber interface {
	// Probe loads url out of band and reports whether it loaded within the probe timeout
	Probe(ctx context.Context, url string) bool
}
