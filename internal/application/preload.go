package application

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/devbush/tabr/internal/domain"
	"github.com/devbush/tabr/internal/ports"
)

// TopUpMode selects how many preload slots a top-up may fill
type TopUpMode int

const (
	// TopUpIncremental adds at most one photo
	TopUpIncremental TopUpMode = iota
	// TopUpFull fills the queue to capacity
	TopUpFull
)

func (m TopUpMode) String() string {
	if m == TopUpFull {
		return "full"
	}
	return "incremental"
}

const (
	DefaultPreloadCapacity = 2
	maxCandidateAttempts   = 5
	maxParallelProbes      = 2
)

// Preloader keeps the preload queue topped up with distinct, already-warmed photos
type Preloader struct {
	cache    ports.PhotoCache
	prober   ports.ImageProber
	capacity int
	logger   *slog.Logger
	flights  singleflight.Group
}

// NewPreloader creates a preloader filling up to capacity slots
func NewPreloader(cache ports.PhotoCache, prober ports.ImageProber, capacity int, logger *slog.Logger) *Preloader {
	if capacity <= 0 {
		capacity = DefaultPreloadCapacity
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Preloader{
		cache:    cache,
		prober:   prober,
		capacity: capacity,
		logger:   logger,
	}
}

// Capacity returns the maximum queue length
func (p *Preloader) Capacity() int {
	return p.capacity
}

// TopUp fetches, probes and queues new photos for provider, never queueing
// currentURL or a URL already queued. Concurrent top-ups for the same
// provider share one run; a caller that joined another caller's run then
// evicts its own currentURL and, for TopUpFull, tops up again. It returns
// how many photos were added for this caller.
func (p *Preloader) TopUp(ctx context.Context, provider ports.PhotoProvider, currentURL string, mode TopUpMode) (int, error) {
	led := false
	v, err, shared := p.flights.Do(string(provider.ID()), func() (any, error) {
		led = true
		return p.topUp(ctx, provider, currentURL, mode)
	})
	if err != nil {
		return 0, err
	}
	added := v.(int)
	if led || !shared {
		return added, nil
	}

	// The joined run excluded another caller's photo and may have filled fewer slots.
	evicted, err := p.evict(ctx, provider.ID(), currentURL)
	if err != nil {
		return 0, err
	}
	if evicted {
		added = max(added-1, 0)
	}
	if mode != TopUpFull && !evicted {
		return added, nil
	}

	more, err := p.topUp(ctx, provider, currentURL, mode)
	if err != nil {
		return added, err
	}
	return added + more, nil
}

// evict drops url from provider's queue, reporting whether it was queued.
func (p *Preloader) evict(ctx context.Context, id domain.ProviderID, url string) (bool, error) {
	if url == "" {
		return false, nil
	}
	queued, err := p.cache.Preloaded(ctx, id)
	if err != nil {
		return false, err
	}
	kept := make([]domain.Photo, 0, len(queued))
	for _, q := range queued {
		if q.URL != url {
			kept = append(kept, q)
		}
	}
	if len(kept) == len(queued) {
		return false, nil
	}
	return true, p.cache.SetPreloaded(ctx, id, kept)
}

func (p *Preloader) topUp(ctx context.Context, provider ports.PhotoProvider, currentURL string, mode TopUpMode) (int, error) {
	id := provider.ID()
	log := p.logger.With(slog.String("provider", id.String()), slog.String("mode", mode.String()))

	// The photo on screen may have been queued before it was shown.
	if _, err := p.evict(ctx, id, currentURL); err != nil {
		return 0, err
	}
	existing, err := p.cache.Preloaded(ctx, id)
	if err != nil {
		return 0, err
	}

	needed := p.capacity - len(existing)
	if mode == TopUpIncremental && needed > 1 {
		needed = 1
	}
	if needed <= 0 {
		return 0, nil
	}

	seen := make(map[string]bool, len(existing)+needed+1)
	if currentURL != "" {
		seen[currentURL] = true
	}
	for _, e := range existing {
		seen[e.URL] = true
	}

	candidates := p.collect(ctx, provider, needed, seen, log)
	if len(candidates) == 0 {
		return 0, ctx.Err()
	}

	accepted := p.probe(ctx, candidates)
	if err := ctx.Err(); err != nil {
		// Cancelled (provider switch, refresh): results must not land in the queue.
		return 0, err
	}
	if len(accepted) == 0 {
		log.Debug("no preload candidate passed the image probe", slog.Int("candidates", len(candidates)))
		return 0, nil
	}

	stored, err := p.cache.MergePreloaded(ctx, id, accepted, currentURL, p.capacity)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, s := range stored {
		for _, a := range accepted {
			if s.URL == a.URL {
				added++
			}
		}
	}
	log.Debug("preload topped up", slog.Int("added", added), slog.Int("queued", len(stored)))
	return added, nil
}

// collect fetches up to needed distinct candidates, at most maxCandidateAttempts per slot.
func (p *Preloader) collect(ctx context.Context, provider ports.PhotoProvider, needed int, seen map[string]bool, log *slog.Logger) []domain.Photo {
	var candidates []domain.Photo

	for slot := 0; slot < needed; slot++ {
		for attempt := 0; attempt < maxCandidateAttempts; attempt++ {
			if ctx.Err() != nil {
				return candidates
			}

			photo := provider.FetchPhoto(ctx, true)
			if photo.IsFallback() {
				// Missing key or a failing API will not improve within this round.
				log.Debug("preload fetch returned fallback", slog.String("error_kind", string(photo.ErrorKind)))
				return candidates
			}
			if seen[photo.URL] {
				continue
			}

			seen[photo.URL] = true
			candidates = append(candidates, photo)
			break
		}
	}

	return candidates
}

// probe warms every candidate in parallel and keeps those that loaded, in order.
func (p *Preloader) probe(ctx context.Context, candidates []domain.Photo) []domain.Photo {
	loaded := make([]bool, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelProbes)
	for i, c := range candidates {
		g.Go(func() error {
			loaded[i] = p.prober.Probe(gctx, c.URL)
			return nil
		})
	}
	_ = g.Wait()

	accepted := make([]domain.Photo, 0, len(candidates))
	for i, c := range candidates {
		if loaded[i] {
			accepted = append(accepted, c)
		}
	}
	return accepted
}
