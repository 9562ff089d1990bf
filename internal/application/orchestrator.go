package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/devbush/tabr/internal/domain"
	"github.com/devbush/tabr/internal/ports"
)

// Origin tells which pipeline step produced a displayed photo
type Origin string

const (
	OriginAPICache Origin = "api-cache"
	OriginPreload  Origin = "preload"
	OriginLive     Origin = "live"
	OriginForced   Origin = "forced"
	OriginRefresh  Origin = "refresh"
	OriginCarousel Origin = "carousel"
)

// Display is a photo ready to be shown
type Display struct {
	Photo    domain.Photo      `json:"photo"`
	Provider domain.ProviderID `json:"provider"`
	Origin   Origin            `json:"origin"`
	Favorite bool              `json:"favorite"`
	Carousel bool              `json:"carousel"`

	// CarouselDisabled is set when carousel mode switched itself off
	// because no favorites were left.
	CarouselDisabled bool `json:"carouselDisabled,omitempty"`
}

const (
	incrementalTopUpDelay = 100 * time.Millisecond
	fullTopUpDelay        = 500 * time.Millisecond
	refreshAttempts       = 3
	refreshRetryWait      = 200 * time.Millisecond
	defaultAPICacheTTL    = 2 * time.Minute
	defaultCarouselEvery  = 2 * time.Minute
)

// DisplayState remembers the photo on screen across runs
type DisplayState interface {
	Current(ctx context.Context) (*Shown, error)
	SetCurrent(ctx context.Context, shown Shown) error
}

// OrchestratorDeps are the collaborators of an Orchestrator
type OrchestratorDeps struct {
	Providers   map[domain.ProviderID]ports.PhotoProvider
	Cache       ports.PhotoCache
	State       DisplayState
	Preferences *PreferencesService
	Favorites   *FavoritesService
	Carousel    *CarouselService
	Preloader   *Preloader
	Scheduler   *Scheduler
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithChangeListener registers fn to receive every newly displayed photo.
// fn runs while the orchestrator is locked and must not call back into it.
func WithChangeListener(fn func(Display)) OrchestratorOption {
	return func(o *Orchestrator) { o.onChange = fn }
}

// WithCarouselInterval sets how often carousel mode rotates favorites
func WithCarouselInterval(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.carouselEvery = d
		}
	}
}

// WithAPICacheTTL sets the max age of the API result cache
func WithAPICacheTTL(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.apiCacheTTL = d
		}
	}
}

// WithPreload enables or disables background preload top-ups
func WithPreload(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) { o.preload = enabled }
}

// WithTopUpDelays overrides the delays before incremental and full top-ups
func WithTopUpDelays(incremental, full time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.incrementalDelay = incremental
		o.fullDelay = full
	}
}

// WithRefreshRetryWait overrides the pause between refresh attempts
func WithRefreshRetryWait(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.retryWait = d }
}

// Orchestrator decides where each displayed photo comes from. Lookups run in
// a fixed priority order: carousel (when on), forced refresh, API result
// cache, preload queue, live fetch. Foreground operations are serialised;
// preload top-ups run in the background and are cancelled by provider
// switches and refreshes.
type Orchestrator struct {
	providers map[domain.ProviderID]ports.PhotoProvider
	cache     ports.PhotoCache
	state     DisplayState
	prefs     *PreferencesService
	favorites *FavoritesService
	carousel  *CarouselService
	preloader *Preloader
	scheduler *Scheduler

	logger           *slog.Logger
	onChange         func(Display)
	apiCacheTTL      time.Duration
	carouselEvery    time.Duration
	incrementalDelay time.Duration
	fullDelay        time.Duration
	retryWait        time.Duration
	preload          bool
	now              func() time.Time

	mu            sync.Mutex
	current       *Display
	topUps        []*Task
	carouselTimer *Task
}

// NewOrchestrator creates an orchestrator. Scheduler is created when nil.
func NewOrchestrator(deps OrchestratorDeps, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		providers:        deps.Providers,
		cache:            deps.Cache,
		state:            deps.State,
		prefs:            deps.Preferences,
		favorites:        deps.Favorites,
		carousel:         deps.Carousel,
		preloader:        deps.Preloader,
		scheduler:        deps.Scheduler,
		logger:           slog.New(slog.DiscardHandler),
		apiCacheTTL:      defaultAPICacheTTL,
		carouselEvery:    defaultCarouselEvery,
		incrementalDelay: incrementalTopUpDelay,
		fullDelay:        fullTopUpDelay,
		retryWait:        refreshRetryWait,
		preload:          true,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.scheduler == nil {
		o.scheduler = NewScheduler(o.logger)
	}
	if o.preloader == nil {
		o.preload = false
	}
	return o
}

// Load displays a photo. With force it bypasses the API result cache and the
// preload queue and fetches a new photo directly.
func (o *Orchestrator) Load(ctx context.Context, force bool) (Display, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	provider, err := o.activeProvider(ctx)
	if err != nil {
		return Display{}, err
	}

	d, handled, err := o.carouselStep(ctx, force)
	if err != nil || handled {
		return d, err
	}
	disabled := d.CarouselDisabled

	if force {
		d, err = o.loadForced(ctx, provider)
	} else {
		d, err = o.loadOrdinary(ctx, provider)
	}
	if err != nil {
		return Display{}, err
	}
	d.CarouselDisabled = disabled
	return o.show(ctx, d), nil
}

// Refresh shows a new photo, retrying a few times for one that differs from
// the photo on screen. Not finding a different one is not an error.
func (o *Orchestrator) Refresh(ctx context.Context) (Display, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	provider, err := o.activeProvider(ctx)
	if err != nil {
		return Display{}, err
	}

	d, handled, err := o.carouselStep(ctx, true)
	if err != nil || handled {
		return d, err
	}
	disabled := d.CarouselDisabled

	o.cancelTopUps()
	o.clearCaches(ctx, provider.ID())

	currentURL := o.currentURL(ctx)
	var photo domain.Photo
	for attempt := 0; attempt < refreshAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, o.retryWait); err != nil {
				return Display{}, err
			}
		}
		photo = provider.FetchPhoto(ctx, true)
		if photo.URL != currentURL {
			break
		}
		o.logger.Debug("refresh returned the photo on screen",
			slog.Int("attempt", attempt+1),
			slog.String("url", photo.URL))
	}

	o.scheduleTopUp(provider, photo.URL, TopUpFull, o.fullDelay)

	return o.show(ctx, Display{
		Photo:            photo,
		Provider:         provider.ID(),
		Origin:           OriginRefresh,
		CarouselDisabled: disabled,
	}), nil
}

// SwitchProvider persists id as the active provider and shows a photo from it.
// Pending top-ups for the previous provider are cancelled and the preload
// queue is cleared. In carousel mode favorites keep being shown.
func (o *Orchestrator) SwitchProvider(ctx context.Context, id domain.ProviderID) (Display, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	provider, ok := o.providers[id]
	if !ok {
		return Display{}, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, id)
	}
	if err := o.prefs.SetProvider(ctx, id); err != nil {
		return Display{}, fmt.Errorf("failed to save provider: %w", err)
	}

	o.cancelTopUps()
	if err := o.cache.ClearPreloaded(ctx); err != nil {
		o.logger.Warn("failed to clear preload cache", slog.Any("error", err))
	}

	d, handled, err := o.carouselStep(ctx, false)
	if err != nil || handled {
		return d, err
	}
	disabled := d.CarouselDisabled

	d, err = o.loadForced(ctx, provider)
	if err != nil {
		return Display{}, err
	}
	d.CarouselDisabled = disabled
	return o.show(ctx, d), nil
}

// SetCarouselMode turns carousel mode on or off. Turning it on with no
// favorites leaves it off and returns domain.ErrNoFavorites.
func (o *Orchestrator) SetCarouselMode(ctx context.Context, on bool) (Display, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopCarouselTimer()

	if on {
		count, err := o.favorites.Count(ctx)
		if err != nil {
			return Display{}, err
		}
		if count == 0 {
			if err := o.carousel.SetMode(ctx, false); err != nil {
				o.logger.Warn("failed to save carousel mode", slog.Any("error", err))
			}
			return Display{}, domain.ErrNoFavorites
		}
		if err := o.carousel.SetMode(ctx, true); err != nil {
			return Display{}, fmt.Errorf("failed to save carousel mode: %w", err)
		}

		d, handled, err := o.carouselStep(ctx, false)
		if err != nil {
			return Display{}, err
		}
		if handled {
			return d, nil
		}
		// Favorites vanished between the count and the pick.
		return Display{}, domain.ErrNoFavorites
	}

	if err := o.carousel.SetMode(ctx, false); err != nil {
		return Display{}, fmt.Errorf("failed to save carousel mode: %w", err)
	}
	if err := o.carousel.Clear(ctx); err != nil {
		o.logger.Warn("failed to clear carousel cache", slog.Any("error", err))
	}

	provider, err := o.activeProvider(ctx)
	if err != nil {
		return Display{}, err
	}
	d, err := o.loadOrdinary(ctx, provider)
	if err != nil {
		return Display{}, err
	}
	return o.show(ctx, d), nil
}

// CarouselMode reports whether carousel mode is on
func (o *Orchestrator) CarouselMode(ctx context.Context) (bool, error) {
	return o.carousel.Mode(ctx)
}

// ToggleFavorite saves the photo on screen as a favorite, or removes it if it
// already is one. It returns the updated display and whether it was added.
func (o *Orchestrator) ToggleFavorite(ctx context.Context) (Display, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	d, err := o.currentLocked(ctx)
	if err != nil {
		return Display{}, false, err
	}

	isFav, err := o.favorites.IsFavorite(ctx, d.Photo.URL)
	if err != nil {
		return Display{}, false, err
	}

	added := false
	if isFav {
		if _, err := o.favorites.Remove(ctx, d.Photo.URL); err != nil {
			return Display{}, false, err
		}
		// The memoized pick may be the photo just removed.
		if err := o.carousel.Clear(ctx); err != nil {
			o.logger.Warn("failed to clear carousel cache", slog.Any("error", err))
		}
	} else {
		fav := domain.NewFavorite(d.Photo, d.Provider, o.now())
		if added, err = o.favorites.Add(ctx, fav); err != nil {
			return Display{}, false, err
		}
	}

	d.Favorite = added
	o.current = &d
	o.notify(d)
	return d, added, nil
}

// Current returns the photo on screen, restored from the store after a restart.
// It returns domain.ErrNoPhoto when nothing was shown yet.
func (o *Orchestrator) Current(ctx context.Context) (Display, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentLocked(ctx)
}

// PendingTopUps returns how many scheduled top-ups have not finished
func (o *Orchestrator) PendingTopUps() int {
	return o.scheduler.Pending()
}

// Wait blocks until scheduled top-ups have finished
func (o *Orchestrator) Wait(ctx context.Context) error {
	return o.scheduler.Wait(ctx)
}

// Close cancels all background work and waits for it to stop
func (o *Orchestrator) Close() {
	o.scheduler.Close()
}

func (o *Orchestrator) currentLocked(ctx context.Context) (Display, error) {
	if o.current != nil {
		return *o.current, nil
	}

	shown, err := o.state.Current(ctx)
	if err != nil {
		return Display{}, err
	}
	if shown == nil {
		return Display{}, domain.ErrNoPhoto
	}

	d := Display{Photo: shown.Photo, Provider: shown.Provider, Carousel: shown.Carousel}
	if shown.Carousel {
		d.Origin = OriginCarousel
	}
	if isFav, err := o.favorites.IsFavorite(ctx, d.Photo.URL); err == nil {
		d.Favorite = isFav
	}
	o.current = &d
	return d, nil
}

func (o *Orchestrator) activeProvider(ctx context.Context) (ports.PhotoProvider, error) {
	id, err := o.prefs.Provider(ctx)
	if err != nil {
		o.logger.Warn("failed to read provider preference", slog.Any("error", err))
	}
	provider, ok := o.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, id)
	}
	return provider, nil
}

// carouselStep shows a favorite when carousel mode is on. handled is false
// when the mode is off, or when it was on with no favorites left, in which
// case the mode is switched off and the returned display carries
// CarouselDisabled.
func (o *Orchestrator) carouselStep(ctx context.Context, reroll bool) (Display, bool, error) {
	on, err := o.carousel.Mode(ctx)
	if err != nil {
		o.logger.Warn("failed to read carousel mode", slog.Any("error", err))
		return Display{}, false, nil
	}
	if !on {
		return Display{}, false, nil
	}

	var fav *domain.FavoritePhoto
	if reroll {
		fav, err = o.carousel.Reroll(ctx, o.currentURL(ctx))
	} else {
		fav, err = o.carousel.RandomFavorite(ctx)
	}
	if err != nil {
		return Display{}, false, fmt.Errorf("failed to pick favorite: %w", err)
	}

	if fav == nil {
		o.logger.Info("no favorites left, carousel mode switched off")
		o.stopCarouselTimer()
		if err := o.carousel.SetMode(ctx, false); err != nil {
			o.logger.Warn("failed to save carousel mode", slog.Any("error", err))
		}
		return Display{CarouselDisabled: true}, false, nil
	}

	// A refresh or a new mode restarts the rotation period.
	if reroll || o.carouselTimer == nil {
		o.startCarouselTimer()
	}

	return o.show(ctx, Display{
		Photo:    fav.Photo,
		Provider: fav.Source,
		Origin:   OriginCarousel,
		Carousel: true,
	}), true, nil
}

func (o *Orchestrator) loadForced(ctx context.Context, provider ports.PhotoProvider) (Display, error) {
	id := provider.ID()

	o.cancelTopUps()
	if err := o.cache.ClearPreloaded(ctx); err != nil {
		o.logger.Warn("failed to clear preload cache", slog.Any("error", err))
	}
	if err := o.cache.InvalidateAPIPhoto(ctx, id); err != nil {
		o.logger.Warn("failed to invalidate api cache", slog.Any("error", err))
	}

	photo := provider.FetchPhoto(ctx, true)
	o.scheduleTopUp(provider, photo.URL, TopUpFull, o.fullDelay)

	return Display{Photo: photo, Provider: id, Origin: OriginForced}, nil
}

func (o *Orchestrator) loadOrdinary(ctx context.Context, provider ports.PhotoProvider) (Display, error) {
	id := provider.ID()

	cached, err := o.cache.GetAPIPhoto(ctx, id, o.apiCacheTTL)
	if err != nil {
		o.logger.Warn("failed to read api cache", slog.Any("error", err))
	}
	if cached != nil {
		o.scheduleTopUp(provider, cached.URL, TopUpIncremental, o.incrementalDelay)
		return Display{Photo: *cached, Provider: id, Origin: OriginAPICache}, nil
	}

	next, err := o.cache.TakePreloaded(ctx, id)
	if err != nil {
		o.logger.Warn("failed to read preload cache", slog.Any("error", err))
	}
	if next != nil {
		o.writeAPICache(ctx, id, *next)
		o.scheduleTopUp(provider, next.URL, TopUpIncremental, o.incrementalDelay)
		return Display{Photo: *next, Provider: id, Origin: OriginPreload}, nil
	}

	photo := provider.FetchPhoto(ctx, true)
	o.writeAPICache(ctx, id, photo)
	o.scheduleTopUp(provider, photo.URL, TopUpFull, o.fullDelay)
	return Display{Photo: photo, Provider: id, Origin: OriginLive}, nil
}

func (o *Orchestrator) writeAPICache(ctx context.Context, id domain.ProviderID, photo domain.Photo) {
	if photo.IsFallback() {
		return
	}
	if err := o.cache.SetAPIPhoto(ctx, id, photo); err != nil {
		o.logger.Warn("failed to write api cache", slog.Any("error", err))
	}
}

func (o *Orchestrator) clearCaches(ctx context.Context, id domain.ProviderID) {
	if err := o.cache.ClearPreloaded(ctx); err != nil {
		o.logger.Warn("failed to clear preload cache", slog.Any("error", err))
	}
	if err := o.cache.InvalidateAPIPhoto(ctx, id); err != nil {
		o.logger.Warn("failed to invalidate api cache", slog.Any("error", err))
	}
	if err := o.cache.ClearCarousel(ctx); err != nil {
		o.logger.Warn("failed to clear carousel cache", slog.Any("error", err))
	}
}

func (o *Orchestrator) currentURL(ctx context.Context) string {
	if o.current != nil {
		return o.current.Photo.URL
	}
	shown, err := o.state.Current(ctx)
	if err != nil || shown == nil {
		return ""
	}
	return shown.Photo.URL
}

func (o *Orchestrator) show(ctx context.Context, d Display) Display {
	if isFav, err := o.favorites.IsFavorite(ctx, d.Photo.URL); err == nil {
		d.Favorite = isFav
	}

	err := o.state.SetCurrent(ctx, Shown{
		Photo:    d.Photo,
		Provider: d.Provider,
		Carousel: d.Carousel,
		ShownAt:  o.now(),
	})
	if err != nil {
		o.logger.Warn("failed to record current photo", slog.Any("error", err))
	}

	o.current = &d
	o.logger.Debug("photo displayed",
		slog.String("origin", string(d.Origin)),
		slog.String("provider", d.Provider.String()),
		slog.String("url", d.Photo.URL))
	o.notify(d)
	return d
}

func (o *Orchestrator) notify(d Display) {
	if o.onChange != nil {
		o.onChange(d)
	}
}

func (o *Orchestrator) scheduleTopUp(provider ports.PhotoProvider, currentURL string, mode TopUpMode, delay time.Duration) {
	if !o.preload {
		return
	}

	name := "preload:" + provider.ID().String()
	task := o.scheduler.After(name, delay, func(ctx context.Context) {
		added, err := o.preloader.TopUp(ctx, provider, currentURL, mode)
		if err != nil && !errors.Is(err, context.Canceled) {
			o.logger.Debug("preload top-up failed",
				slog.String("provider", provider.ID().String()),
				slog.Any("error", err))
			return
		}
		if added > 0 {
			o.logger.Debug("preload top-up finished",
				slog.String("provider", provider.ID().String()),
				slog.Int("added", added))
		}
	})

	pending := o.topUps[:0]
	for _, t := range o.topUps {
		select {
		case <-t.Done():
		default:
			pending = append(pending, t)
		}
	}
	o.topUps = append(pending, task)
}

func (o *Orchestrator) cancelTopUps() {
	for _, t := range o.topUps {
		select {
		case <-t.Done():
			continue
		default:
		}
		t.Cancel()
		o.logger.Debug("cancelled scheduled task", slog.String("task", t.Name()))
	}
	o.topUps = nil
}

func (o *Orchestrator) startCarouselTimer() {
	o.stopCarouselTimer()
	o.carouselTimer = o.scheduler.Every("carousel", o.carouselEvery, o.rotateCarousel)
}

func (o *Orchestrator) stopCarouselTimer() {
	if o.carouselTimer != nil {
		o.carouselTimer.Cancel()
		o.carouselTimer = nil
	}
}

// rotateCarousel is the carousel timer tick
func (o *Orchestrator) rotateCarousel(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	fav, err := o.carousel.Reroll(ctx, o.currentURL(ctx))
	if err != nil {
		o.logger.Warn("carousel rotation failed", slog.Any("error", err))
		return
	}
	if fav == nil {
		o.logger.Info("no favorites left, carousel mode switched off")
		o.stopCarouselTimer()
		if err := o.carousel.SetMode(ctx, false); err != nil {
			o.logger.Warn("failed to save carousel mode", slog.Any("error", err))
		}
		return
	}

	o.show(ctx, Display{
		Photo:    fav.Photo,
		Provider: fav.Source,
		Origin:   OriginCarousel,
		Carousel: true,
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
