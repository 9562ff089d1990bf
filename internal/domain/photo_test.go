package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseProviderID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ProviderID
		wantErr bool
	}{
		{
			name:  "unsplash",
			input: "unsplash",
			want:  ProviderUnsplash,
		},
		{
			name:  "mixed case with spaces",
			input: "  Pixabay ",
			want:  ProviderPixabay,
		},
		{
			name:    "unknown provider",
			input:   "500px",
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProviderID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProviderID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownProvider) {
					t.Errorf("ParseProviderID(%q) error = %v, want ErrUnknownProvider", tt.input, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseProviderID(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestPhoto_IsFallback(t *testing.T) {
	live := Photo{URL: "https://images.example/a.jpg"}
	if live.IsFallback() {
		t.Error("live photo reported as fallback")
	}

	noKey := live.WithError(ErrorNoKey)
	if !noKey.IsFallback() {
		t.Error("no-key photo not reported as fallback")
	}
	if live.ErrorKind != ErrorNone {
		t.Error("WithError mutated the original photo")
	}
}

func TestNewFavorite_DropsErrorKind(t *testing.T) {
	savedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	fav := NewFavorite(Photo{URL: "u", ErrorKind: ErrorAPI}, ProviderPixabay, savedAt)

	if fav.IsFallback() {
		t.Error("favorite kept fallback flag")
	}
	if fav.Source != ProviderPixabay {
		t.Errorf("Source = %s, want pixabay", fav.Source)
	}
	if !fav.SavedAt.Equal(savedAt) {
		t.Errorf("SavedAt = %v, want %v", fav.SavedAt, savedAt)
	}
}

func TestCacheEntry_Valid(t *testing.T) {
	written := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	entry := NewCacheEntry("payload", written)
	maxAge := 2 * time.Minute

	tests := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{"just written", 0, true},
		{"one second before expiry", maxAge - time.Second, true},
		{"exactly max age", maxAge, false},
		{"long expired", time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entry.Valid(written.Add(tt.elapsed), maxAge); got != tt.want {
				t.Errorf("Valid(+%v) = %v, want %v", tt.elapsed, got, tt.want)
			}
		})
	}

	var zero CacheEntry[string]
	if zero.Valid(written, maxAge) {
		t.Error("zero entry reported valid")
	}
}
