// Package photos implements ports.PhotoProvider for the Unsplash and Pixabay APIs.
package photos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/devbush/tabr/internal/domain"
	"github.com/devbush/tabr/internal/ports"
)

// Default bounds, overridable through Options
const (
	DefaultTimeout  = 10 * time.Second
	DefaultCacheTTL = 2 * time.Minute
)

var errEmptyResult = errors.New("empty result set")

// Options holds the collaborators shared by every provider
type Options struct {
	Client      *http.Client
	Credentials ports.Credentials
	Cache       ports.APICache // optional
	CacheTTL    time.Duration
	Timeout     time.Duration
	UserAgent   string
	BaseURL     string // API root, overridden in tests
	Logger      *slog.Logger

	// Intn returns a pseudo-random int in [0, n); defaults to math/rand/v2.
	Intn func(n int) int
	Now  func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		o.Client = http.DefaultClient
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Intn == nil {
		o.Intn = rand.IntN
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// New builds the provider identified by id
func New(id domain.ProviderID, opts Options) (ports.PhotoProvider, error) {
	switch id {
	case domain.ProviderUnsplash:
		return NewUnsplash(opts), nil
	case domain.ProviderPixabay:
		return NewPixabay(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, id)
	}
}

// NewAll builds every supported provider, keyed by id
func NewAll(opts Options) map[domain.ProviderID]ports.PhotoProvider {
	all := make(map[domain.ProviderID]ports.PhotoProvider, len(domain.Providers))
	for _, id := range domain.Providers {
		p, _ := New(id, opts)
		all[id] = p
	}
	return all
}

// requestFunc performs one API call with a resolved key
type requestFunc func(ctx context.Context, key string, skipCache bool) (domain.Photo, error)

// base carries the fetch flow common to both providers:
// cache check, credentials, one bounded request, fallback on any failure.
type base struct {
	id        domain.ProviderID
	opts      Options
	baseURL   string
	fallbacks []domain.Photo
	request   requestFunc
}

func newBase(id domain.ProviderID, opts Options, defaultURL string, fallbacks []domain.Photo) base {
	opts = opts.withDefaults()
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultURL
	}
	return base{
		id:        id,
		opts:      opts,
		baseURL:   baseURL,
		fallbacks: fallbacks,
	}
}

func (b *base) ID() domain.ProviderID {
	return b.id
}

func (b *base) FetchPhoto(ctx context.Context, skipCache bool) (photo domain.Photo) {
	log := b.opts.Logger.With(slog.String("provider", b.id.String()), slog.Bool("skip_cache", skipCache))

	defer func() {
		if r := recover(); r != nil {
			log.Error("photo fetch panicked", slog.Any("panic", r))
			photo = b.fallback(domain.ErrorAPI)
		}
	}()

	if !skipCache && b.opts.Cache != nil {
		cached, err := b.opts.Cache.GetAPIPhoto(ctx, b.id, b.opts.CacheTTL)
		if err != nil {
			log.Warn("api cache read failed", slog.Any("error", err))
		} else if cached != nil {
			log.Debug("api cache hit", slog.String("url", cached.URL))
			return *cached
		}
	}

	key, err := b.opts.Credentials.APIKey(ctx, b.id)
	if err != nil {
		log.Warn("failed to read api key", slog.Any("error", err))
	}
	if key == "" {
		log.Info("no api key configured, using fallback photo")
		return b.fallback(domain.ErrorNoKey)
	}

	reqCtx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	photo, err = b.request(reqCtx, key, skipCache)
	if err != nil {
		log.Warn("photo fetch failed", slog.Any("error", err))
		return b.fallback(domain.ErrorAPI)
	}

	if !skipCache && b.opts.Cache != nil {
		if err := b.opts.Cache.SetAPIPhoto(ctx, b.id, photo); err != nil {
			log.Warn("api cache write failed", slog.Any("error", err))
		}
	}
	return photo
}

func (b *base) fallback(kind domain.ErrorKind) domain.Photo {
	return b.fallbacks[b.opts.Intn(len(b.fallbacks))].WithError(kind)
}

func (b *base) getJSON(ctx context.Context, url string, header http.Header, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, vals := range header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}
	if b.opts.UserAgent != "" {
		req.Header.Set("User-Agent", b.opts.UserAgent)
	}

	resp, err := b.opts.Client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
