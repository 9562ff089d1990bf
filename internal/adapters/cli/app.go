package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/devbush/tabr/internal/adapters/cache"
	"github.com/devbush/tabr/internal/adapters/kvstore"
	"github.com/devbush/tabr/internal/adapters/photos"
	"github.com/devbush/tabr/internal/application"
	"github.com/devbush/tabr/internal/config"
	"github.com/devbush/tabr/internal/domain"
	"github.com/devbush/tabr/internal/ports"
)

// settleTimeout bounds how long a one-shot command waits for background preloading
const settleTimeout = 30 * time.Second

// AppOptions tune how the app is wired for one command
type AppOptions struct {
	LogLevel  string // overrides config and environment when set
	LogOutput io.Writer
	Ephemeral bool // keep state in memory instead of the sqlite store
	NoPreload bool
	OnChange  func(application.Display)
}

// App holds all application dependencies
type App struct {
	Config    *config.Config
	Durations config.Durations
	Logger    *slog.Logger
	Store     ports.KVStore
	Images    *cache.FileCache
	Providers map[domain.ProviderID]ports.PhotoProvider

	PhotoCache   *application.PhotoCacheService
	Preferences  *application.PreferencesService
	Favorites    *application.FavoritesService
	Carousel     *application.CarouselService
	CacheSvc     *application.CacheService
	Preloader    *application.Preloader
	Orchestrator *application.Orchestrator

	preload    bool
	closeStore func() error
}

// NewApp creates and wires up all dependencies
func NewApp(ctx context.Context, opts AppOptions) (*App, error) {
	// Ensure directories exist
	if err := config.EnsureDirs(); err != nil {
		return nil, err
	}

	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}

	durations, err := cfg.GetDurations()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	defaultProvider, err := domain.ParseProviderID(cfg.Defaults.Provider)
	if err != nil {
		return nil, fmt.Errorf("invalid config: defaults.provider: %w", err)
	}

	level := cfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := newLogger(opts.LogOutput, level)
	if err != nil {
		return nil, err
	}

	var store ports.KVStore
	closeStore := func() error { return nil }
	if opts.Ephemeral {
		store = kvstore.NewMemoryStore()
	} else {
		sqlStore, err := kvstore.Open(ctx, config.StorePath())
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		store = sqlStore
		closeStore = sqlStore.Close
	}

	client := &http.Client{}
	images := cache.NewFileCache(afero.NewOsFs(), config.ImageCacheDir(), durations.ImageCacheTTL)
	prober := cache.NewProber(client, images, durations.ProbeTimeout, cfg.Network.UserAgent, logger)

	photoCache := application.NewPhotoCacheService(store)
	prefs := application.NewPreferencesService(store, defaultProvider, map[domain.ProviderID]string{
		domain.ProviderUnsplash: cfg.Env.UnsplashKey,
		domain.ProviderPixabay:  cfg.Env.PixabayKey,
	})
	favorites := application.NewFavoritesService(store)
	carousel := application.NewCarouselService(photoCache, favorites, store, durations.CarouselTTL)

	providers := photos.NewAll(photos.Options{
		Client:      client,
		Credentials: prefs,
		Cache:       photoCache,
		CacheTTL:    durations.APICacheTTL,
		Timeout:     durations.FetchTimeout,
		UserAgent:   cfg.Network.UserAgent,
		Logger:      logger,
	})

	preloader := application.NewPreloader(photoCache, prober, cfg.Defaults.PreloadCapacity, logger)

	orchOpts := []application.OrchestratorOption{
		application.WithLogger(logger),
		application.WithAPICacheTTL(durations.APICacheTTL),
		application.WithCarouselInterval(durations.CarouselInterval),
		application.WithPreload(!opts.NoPreload),
	}
	if opts.OnChange != nil {
		orchOpts = append(orchOpts, application.WithChangeListener(opts.OnChange))
	}

	orchestrator := application.NewOrchestrator(application.OrchestratorDeps{
		Providers:   providers,
		Cache:       photoCache,
		State:       photoCache,
		Preferences: prefs,
		Favorites:   favorites,
		Carousel:    carousel,
		Preloader:   preloader,
		Scheduler:   application.NewScheduler(logger),
	}, orchOpts...)

	return &App{
		Config:       cfg,
		Durations:    durations,
		Logger:       logger,
		Store:        store,
		Images:       images,
		Providers:    providers,
		PhotoCache:   photoCache,
		Preferences:  prefs,
		Favorites:    favorites,
		Carousel:     carousel,
		CacheSvc:     application.NewCacheService(images, photoCache),
		Preloader:    preloader,
		Orchestrator: orchestrator,
		preload:      !opts.NoPreload,
		closeStore:   closeStore,
	}, nil
}

// Settle waits a bounded time for scheduled preloading, so the next run
// finds a warm queue
func (a *App) Settle(ctx context.Context) {
	if !a.preload {
		return
	}
	if n := a.Orchestrator.PendingTopUps(); n > 0 {
		a.Logger.Debug("waiting for preload", slog.Int("pending", n))
	}
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	if err := a.Orchestrator.Wait(ctx); err != nil {
		a.Logger.Debug("preload still running at exit", slog.Any("error", err))
	}
}

// Close stops background work and closes the store
func (a *App) Close() error {
	a.Orchestrator.Close()
	return a.closeStore()
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "", "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "off", "none":
		return slog.New(slog.DiscardHandler), nil
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// withApp builds an App for one command, runs fn and tears the App down
func withApp(ctx context.Context, opts AppOptions, fn func(ctx context.Context, app *App) error) error {
	app, err := NewApp(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			app.Logger.Warn("failed to close store", slog.Any("error", err))
		}
	}()

	if err := fn(ctx, app); err != nil {
		return err
	}
	app.Settle(ctx)
	return nil
}
