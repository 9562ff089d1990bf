package photos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/devbush/tabr/internal/domain"
	"github.com/devbush/tabr/internal/ports"
)

const unsplashAPIURL = "https://api.unsplash.com"

var unsplashFallbacks = []domain.Photo{
	{
		URL:              "https://images.unsplash.com/photo-1506905925346-21bda4d32df4?ixlib=rb-4.0.3&auto=format&fit=crop&w=1920&q=80",
		PhotographerName: "Unsplash",
		PhotographerLink: "https://unsplash.com",
		OriginalLink:     "https://unsplash.com",
	},
}

// Unsplash fetches random landscape photos from the Unsplash API
type Unsplash struct {
	base
}

// NewUnsplash creates an Unsplash provider
func NewUnsplash(opts Options) *Unsplash {
	u := &Unsplash{base: newBase(domain.ProviderUnsplash, opts, unsplashAPIURL, unsplashFallbacks)}
	u.request = u.random
	return u
}

type unsplashPhoto struct {
	URLs struct {
		Full    string `json:"full"`
		Regular string `json:"regular"`
	} `json:"urls"`
	User struct {
		Name  string `json:"name"`
		Links struct {
			HTML string `json:"html"`
		} `json:"links"`
	} `json:"user"`
	Links struct {
		HTML string `json:"html"`
	} `json:"links"`
}

func (u *Unsplash) randomURL(skipCache bool) string {
	params := url.Values{}
	params.Set("orientation", "landscape")
	params.Set("w", "1920")
	params.Set("h", "1080")
	if skipCache {
		params.Set("t", strconv.FormatInt(u.opts.Now().UnixMilli(), 10))
	}
	return u.baseURL + "/photos/random?" + params.Encode()
}

func (u *Unsplash) random(ctx context.Context, key string, skipCache bool) (domain.Photo, error) {
	header := http.Header{}
	header.Set("Authorization", "Client-ID "+key)
	header.Set("Accept-Version", "v1")

	var raw json.RawMessage
	if err := u.getJSON(ctx, u.randomURL(skipCache), header, &raw); err != nil {
		return domain.Photo{}, err
	}

	// The endpoint answers with an object, or an array when a count is requested.
	var candidates []unsplashPhoto
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &candidates); err != nil {
			return domain.Photo{}, fmt.Errorf("failed to decode photo list: %w", err)
		}
	} else {
		var single unsplashPhoto
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return domain.Photo{}, fmt.Errorf("failed to decode photo: %w", err)
		}
		candidates = append(candidates, single)
	}
	if len(candidates) == 0 {
		return domain.Photo{}, errEmptyResult
	}

	picked := candidates[u.opts.Intn(len(candidates))]
	photoURL := picked.URLs.Full
	if photoURL == "" {
		photoURL = picked.URLs.Regular
	}
	if photoURL == "" {
		return domain.Photo{}, fmt.Errorf("photo has no image url")
	}

	return domain.Photo{
		URL:              photoURL,
		PhotographerName: picked.User.Name,
		PhotographerLink: picked.User.Links.HTML,
		OriginalLink:     picked.Links.HTML,
	}, nil
}

var _ ports.PhotoProvider = (*Unsplash)(nil)
