package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/devbush/tabr/internal/ports"
)

const (
	// maxImageBytes bounds how much of a single image is kept on disk
	maxImageBytes = 32 << 20
	warmedSize    = 64
	warmedTTL     = 30 * time.Minute
)

// Prober warms image URLs by downloading them into the image cache
type Prober struct {
	client    *http.Client
	images    ports.ImageCache
	timeout   time.Duration
	userAgent string
	warmed    *expirable.LRU[string, struct{}]
	logger    *slog.Logger
}

// NewProber creates a prober that gives each URL at most timeout to load
func NewProber(client *http.Client, images ports.ImageCache, timeout time.Duration, userAgent string, logger *slog.Logger) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Prober{
		client:    client,
		images:    images,
		timeout:   timeout,
		userAgent: userAgent,
		warmed:    expirable.NewLRU[string, struct{}](warmedSize, nil, warmedTTL),
		logger:    logger,
	}
}

// Probe resolves true once url has loaded, false on error or timeout
func (p *Prober) Probe(ctx context.Context, url string) bool {
	if url == "" {
		return false
	}
	if _, ok := p.warmed.Get(url); ok {
		return true
	}
	if _, err := p.images.Get(ctx, url); err == nil {
		p.warmed.Add(url, struct{}{})
		return true
	}

	if err := p.load(ctx, url); err != nil {
		p.logger.Debug("image probe failed",
			slog.String("url", url),
			slog.Any("error", err))
		return false
	}

	p.warmed.Add(url, struct{}{})
	return true
}

func (p *Prober) load(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("failed to load image: HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return fmt.Errorf("unexpected content type %q", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return errors.New("empty image body")
	}
	if len(data) > maxImageBytes {
		// Loaded fine, just too large to keep.
		return nil
	}

	if _, err := p.images.Put(ctx, url, contentType, data); err != nil {
		p.logger.Warn("failed to store warmed image",
			slog.String("url", url),
			slog.Any("error", err))
	}
	return nil
}

var _ ports.ImageProber = (*Prober)(nil)
